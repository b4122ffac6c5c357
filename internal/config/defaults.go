package config

const (
	defaultDataDir       = "~/.local/share/frameloop"
	defaultMediaDir      = "~/.local/share/frameloop/media"
	defaultProcessedDir  = "~/.local/share/frameloop/processed"
	defaultInboxDir      = "~/.local/share/frameloop/inbox"
	defaultLogDir        = "~/.local/share/frameloop/logs"
	defaultAPIBind       = "127.0.0.1:7788"
	defaultFFmpegBinary  = "ffmpeg"
	defaultFFprobeBinary = "ffprobe"

	// 1024x600 is the common panel size for Pi frame builds.
	defaultTargetWidth  = 1024
	defaultTargetHeight = 600

	defaultConvertTimeout     = 600
	defaultConvertWorkers     = 2
	defaultPollInterval       = 5
	defaultDisplayRefresh     = 2
	defaultInboxSettleSeconds = 3
	defaultErrorRetryInterval = 10
	defaultShutdownGrace      = 10
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:      defaultDataDir,
			MediaDir:     defaultMediaDir,
			ProcessedDir: defaultProcessedDir,
			InboxDir:     defaultInboxDir,
			LogDir:       defaultLogDir,
			APIBind:      defaultAPIBind,
		},
		Converter: Converter{
			FFmpegBinary:   defaultFFmpegBinary,
			FFprobeBinary:  defaultFFprobeBinary,
			TargetWidth:    defaultTargetWidth,
			TargetHeight:   defaultTargetHeight,
			TimeoutSeconds: defaultConvertTimeout,
			Workers:        defaultConvertWorkers,
		},
		Workflow: Workflow{
			PollInterval:        defaultPollInterval,
			DisplayRefresh:      defaultDisplayRefresh,
			InboxSettleSeconds:  defaultInboxSettleSeconds,
			ErrorRetryInterval:  defaultErrorRetryInterval,
			ShutdownGracePeriod: defaultShutdownGrace,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
