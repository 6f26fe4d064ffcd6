package config

const (
	defaultStateDir      = "~/.local/share/pocketsync"
	defaultOutputFormat  = "mp3-vbr"
	defaultArtStrategy   = "prefer-file"
	defaultLogFormat     = "console"
	defaultLogLevel      = "info"
	defaultScanWorkers   = 8
	defaultFFmpegBinary  = "ffmpeg"
	defaultFFprobeBinary = "ffprobe"
)

func defaultArtBasenames() []string {
	return []string{"cover", "folder", "album", "cover_image", "cover_art", "front"}
}

func defaultExcludeExtensions() []string {
	return []string{"cue", "nfo", "log", "accurip", "lrc", "lyrics", "sfv", "m3u", "m3u8", "pls"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
		},
		Output: Output{
			Format: defaultOutputFormat,
		},
		Art: Art{
			Strategy:  defaultArtStrategy,
			Basenames: defaultArtBasenames(),
		},
		Filters: Filters{
			ExcludeExtensions: defaultExcludeExtensions(),
		},
		Sync: Sync{
			Workers:      0,
			ScanWorkers:  defaultScanWorkers,
			VerifyCopies: true,
			WriteRecords: true,
		},
		Tools: Tools{
			FFmpeg:  defaultFFmpegBinary,
			FFprobe: defaultFFprobeBinary,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
			ToFile: false,
		},
		History: History{
			Enabled: true,
		},
	}
}
