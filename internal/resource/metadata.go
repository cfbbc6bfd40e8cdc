package resource

import "strconv"

// Metadata keys exposed to templates.
const (
	MetaMode = "mode"
	MetaSSID = "ssid"
	MetaPass = "pass"
	MetaPort = "port"
)

// Metadata is the build configuration exposed to templates. String values
// are escaped with EscapeString; the port is a plain decimal number.
type Metadata map[string]string

// NewMetadata packs the connection settings for the renderer.
func NewMetadata(mode, ssid, pass string, port int) Metadata {
	return Metadata{
		MetaMode: EscapeString(mode),
		MetaSSID: EscapeString(ssid),
		MetaPass: EscapeString(pass),
		MetaPort: strconv.Itoa(port),
	}
}
