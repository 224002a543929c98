package version

// Name is reported as serverInfo.name during the MCP handshake.
const Name = "geo-mcp-agent"

// Build-time variables. Override via -ldflags.
var (
	Version   = "1.0.0"
	Commit    = "dev"
	BuildDate = "dev"
)

// Info describes build/version metadata.
type Info struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"buildDate"`
}

// Get returns version info, defaulting empty fields to "dev".
func Get() Info {
	return Info{
		Name:      Name,
		Version:   defaultOr(Version, "dev"),
		Commit:    defaultOr(Commit, "dev"),
		BuildDate: defaultOr(BuildDate, "dev"),
	}
}

// String renders the info on one line for CLI output.
func (i Info) String() string {
	return i.Name + " " + i.Version + " (commit " + i.Commit + ", built " + i.BuildDate + ")"
}

func defaultOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
