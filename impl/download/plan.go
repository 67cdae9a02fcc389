package download

import (
	"fmt"

	"github.com/ecarrara/oci-registry-client/impl/digest"
	"github.com/ecarrara/oci-registry-client/impl/manifest"
)

// Task is one unique blob to fetch. Index is the position of the task in the
// progress Table.
type Task struct {
	Index     int
	Digest    digest.Digest
	Size      int64
	MediaType string
}

// Plan scans the passed layers in order and returns one Task per unique digest, in
// order of first occurrence. A layer whose digest was already seen is skipped since
// the earlier task fetches the same content. Two layers with the same digest and
// different sizes are a *manifest.ValidationError.
func Plan(layers []manifest.Layer) ([]Task, error) {
	seen := make(map[digest.Digest]int, len(layers))
	tasks := make([]Task, 0, len(layers))
	for _, layer := range layers {
		if layer.Size < 0 {
			return nil, &manifest.ValidationError{Digest: layer.Digest, Reason: fmt.Sprintf("negative size %d", layer.Size)}
		}
		if idx, ok := seen[layer.Digest]; ok {
			if tasks[idx].Size != layer.Size {
				return nil, &manifest.ValidationError{
					Digest: layer.Digest,
					Reason: fmt.Sprintf("declared with conflicting sizes %d and %d", tasks[idx].Size, layer.Size),
				}
			}
			continue
		}
		seen[layer.Digest] = len(tasks)
		tasks = append(tasks, Task{
			Index:     len(tasks),
			Digest:    layer.Digest,
			Size:      layer.Size,
			MediaType: layer.MediaType,
		})
	}
	return tasks, nil
}
