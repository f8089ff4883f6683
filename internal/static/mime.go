package static

import "mime"

// Minimal hosts and containers often ship without a mime.types file, and HLS
// types are missing from Go's built-in table.
var extraTypes = map[string]string{
	".m3u8": "application/vnd.apple.mpegurl",
	".m3u":  "audio/mpegurl",
	".ts":   "video/mp2t",
	".m4s":  "video/iso.segment",
	".mp4":  "video/mp4",
	".aac":  "audio/aac",
	".key":  "application/octet-stream",
	".vtt":  "text/vtt; charset=utf-8",
	".json": "application/json",
	".css":  "text/css; charset=utf-8",
	".js":   "text/javascript; charset=utf-8",
	".html": "text/html; charset=utf-8",
}

func init() {
	for ext, typ := range extraTypes {
		mime.AddExtensionType(ext, typ)
	}
}
