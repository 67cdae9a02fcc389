package config

// Merge takes a struct indicating which configuration options have been provided on the command
// line, as well as a configuration struct parsed from the command line which ALSO includes defaults
// that the user didn't specify. For example the default concurrency is 4 and if you don't specify
// that on the command line - it gets defaulted into the parsed configuration struct. So:
//
//  1. User provided a value: overwrite current config using the user's value
//  2. User did not provide a value, current config is unspecified: use the default in the parsed config
//  3. User did not provide a value, current config is specified: leave the current config untouched
func Merge(fromCmdline FromCmdLine, cfg Configuration) {
	if fromCmdline.LogLevel || config.LogLevel == "" {
		config.LogLevel = cfg.LogLevel
	}
	if fromCmdline.LogFile || config.LogFile == "" {
		config.LogFile = cfg.LogFile
	}
	if fromCmdline.ConfigFile || config.ConfigFile == "" {
		config.ConfigFile = cfg.ConfigFile
	}
	if fromCmdline.DefaultRegistry || config.DefaultRegistry == "" {
		config.DefaultRegistry = cfg.DefaultRegistry
	}
	if fromCmdline.Os || config.Os == "" {
		config.Os = cfg.Os
	}
	if fromCmdline.Arch || config.Arch == "" {
		config.Arch = cfg.Arch
	}
	if fromCmdline.Variant || config.Variant == "" {
		config.Variant = cfg.Variant
	}
	if fromCmdline.MetricsPort || config.MetricsPort == 0 {
		config.MetricsPort = cfg.MetricsPort
	}
	if fromCmdline.PullTimeout || config.PullTimeout == 0 {
		config.PullTimeout = cfg.PullTimeout
	}
	if fromCmdline.OutDir || config.PullConfig.OutDir == "" {
		config.PullConfig.OutDir = cfg.PullConfig.OutDir
	}
	if fromCmdline.Concurrency || config.PullConfig.Concurrency == 0 {
		config.PullConfig.Concurrency = cfg.PullConfig.Concurrency
	}
	if fromCmdline.ChunkSize || config.PullConfig.ChunkSize == 0 {
		config.PullConfig.ChunkSize = cfg.PullConfig.ChunkSize
	}
	if fromCmdline.SkipVerify || !config.PullConfig.SkipVerify {
		config.PullConfig.SkipVerify = cfg.PullConfig.SkipVerify
	}
	if fromCmdline.FailFast || !config.PullConfig.FailFast {
		config.PullConfig.FailFast = cfg.PullConfig.FailFast
	}
	if fromCmdline.Quiet || !config.PullConfig.Quiet {
		config.PullConfig.Quiet = cfg.PullConfig.Quiet
	}
}
