/*
ociregistry-client pulls images from OCI distribution registries. It resolves an
image reference to the image manifest for a platform, and downloads the unique
layers of the image concurrently, verifying each against its digest.

Usage:

	ociregistry-client [global flags] command [command flags] <image>

Commands:

	manifest
		Displays the image manifest and image config for a platform as JSON.
	list
		Displays the platforms in the manifest list of an image.
	pull
		Downloads the layers of an image for a platform with live progress.
	version
		Displays the version.

Global flags:

	--log-level string
		Log level: debug, info, warn or error. Defaults to 'error'.
	--log-file string
		Log to the file rather than the console.
	--config-file string
		A yaml file to load configuration from. Command line values override it.
		Registry auth and TLS can only be configured in the file.
	--registry string
		The registry for references with no registry host. Defaults to Docker Hub.
	--pull-timeout int
		Max time in millis for a command. Defaults to one minute.

Platform flags (manifest and pull):

	--os, --arch, --variant
		Select the image from a manifest list. Default to the host.

Pull flags:

	--out-dir string
		Directory for the layers. Each layer is written to a file named like
		'sha256-<hex>'. Defaults to the current directory.
	--concurrency int
		Max layers to download at the same time. Defaults to 4.
	--chunk-size int
		Max bytes per read. Defaults to 32KiB.
	--skip-verify
		Does not verify layer content against the layer digest.
	--fail-fast
		Cancels the remaining layer downloads when one fails.
	--quiet
		Does not display progress.
	--metrics-port int
		Serves Prometheus metrics on the port while pulling.
*/
package main
