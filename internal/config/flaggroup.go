package config

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// FlagType represents the type of a flag value
type FlagType int

const (
	BoolType FlagType = iota
	StringType
	IntType
	StringListType
)

// FlagDef holds metadata for a single flag (short + long names, type, default, description)
type FlagDef struct {
	Short       string
	Long        string
	Type        FlagType
	Default     interface{}
	Description string
}

// Key returns the name config files and SetFlags use for the flag
func (f FlagDef) Key() string {
	if f.Long != "" {
		return f.Long
	}
	return f.Short
}

// FlagGroup is a named category containing related flags
type FlagGroup struct {
	Name  string
	Flags []FlagDef
}

// HelpFormatter holds the tool info and ordered flag groups for custom help rendering
type HelpFormatter struct {
	ToolName    string
	Description string
	Groups      []*FlagGroup
}

// stringList collects every occurrence of a repeatable string flag
type stringList struct {
	values *[]string
}

func (s stringList) String() string {
	if s.values == nil {
		return ""
	}
	return strings.Join(*s.values, ",")
}

func (s stringList) Set(v string) error {
	*s.values = append(*s.values, v)
	return nil
}

// addBoolFlag registers a bool flag with both short and long names and appends it to the group
func addBoolFlag(fs *flag.FlagSet, group *FlagGroup, p *bool, short, long string, value bool, usage string) {
	if short != "" {
		fs.BoolVar(p, short, value, usage)
	}
	if long != "" {
		fs.BoolVar(p, long, value, usage)
	}
	group.Flags = append(group.Flags, FlagDef{
		Short:       short,
		Long:        long,
		Type:        BoolType,
		Default:     value,
		Description: usage,
	})
}

// addStringFlag registers a string flag with both short and long names and appends it to the group
func addStringFlag(fs *flag.FlagSet, group *FlagGroup, p *string, short, long string, value string, usage string) {
	if short != "" {
		fs.StringVar(p, short, value, usage)
	}
	if long != "" {
		fs.StringVar(p, long, value, usage)
	}
	group.Flags = append(group.Flags, FlagDef{
		Short:       short,
		Long:        long,
		Type:        StringType,
		Default:     value,
		Description: usage,
	})
}

// addIntFlag registers an int flag with both short and long names and appends it to the group
func addIntFlag(fs *flag.FlagSet, group *FlagGroup, p *int, short, long string, value int, usage string) {
	if short != "" {
		fs.IntVar(p, short, value, usage)
	}
	if long != "" {
		fs.IntVar(p, long, value, usage)
	}
	group.Flags = append(group.Flags, FlagDef{
		Short:       short,
		Long:        long,
		Type:        IntType,
		Default:     value,
		Description: usage,
	})
}

// addStringListFlag registers a repeatable string flag; both names append to the same list
func addStringListFlag(fs *flag.FlagSet, group *FlagGroup, p *[]string, short, long string, usage string) {
	value := stringList{values: p}
	if short != "" {
		fs.Var(value, short, usage)
	}
	if long != "" {
		fs.Var(value, long, usage)
	}
	group.Flags = append(group.Flags, FlagDef{
		Short:       short,
		Long:        long,
		Type:        StringListType,
		Description: usage,
	})
}

// RegisterFlags creates all flag groups, registers every flag on fs,
// and returns a populated HelpFormatter.
func RegisterFlags(fs *flag.FlagSet, cfg *Config) *HelpFormatter {
	formatter := &HelpFormatter{
		ToolName:    "hprobe",
		Description: "a fast http probe",
	}

	// INPUT
	input := &FlagGroup{Name: "INPUT"}
	addStringFlag(fs, input, &cfg.InputFile, "i", "input", "", "Input file with one hostname per line (default: stdin)")
	formatter.Groups = append(formatter.Groups, input)

	// OUTPUT
	output := &FlagGroup{Name: "OUTPUT"}
	addStringFlag(fs, output, &cfg.OutputFile, "o", "output", "", "Output file for responding URLs (default: stdout)")
	addBoolFlag(fs, output, &cfg.JSON, "j", "json", false, "Write one JSON object per result")
	formatter.Groups = append(formatter.Groups, output)

	// PROBES
	probes := &FlagGroup{Name: "PROBES"}
	addStringListFlag(fs, probes, &cfg.Probes, "p", "probe", "Protocol port pair <http|https>:<port> (repeatable)")
	addBoolFlag(fs, probes, &cfg.SuppressDefault, "s", "suppress_default", false, "Do not process the default http and https ports")
	addBoolFlag(fs, probes, &cfg.ResolveIP, "rip", "resolve-ip", false, "Include the dialed IP address in JSON output")
	formatter.Groups = append(formatter.Groups, probes)

	// CONFIGURATION
	configuration := &FlagGroup{Name: "CONFIGURATION"}
	addStringFlag(fs, configuration, &cfg.ConfigFile, "cfg", "config", "", "YAML config file; command line flags take precedence")
	addStringFlag(fs, configuration, &cfg.ProxyAll, "", "proxy-all", "", "The url of the proxy for all requests")
	addStringFlag(fs, configuration, &cfg.ProxyHTTP, "", "proxy-http", "", "The url of the proxy for http requests")
	addStringFlag(fs, configuration, &cfg.ProxyHTTPS, "", "proxy-https", "", "The url of the proxy for https requests")
	addBoolFlag(fs, configuration, &cfg.InsecureSkipVerify, "k", "insecure", false, "Skip TLS certificate verification")
	addBoolFlag(fs, configuration, &cfg.FollowRedirects, "fr", "follow-redirects", true, "Follow redirects")
	addIntFlag(fs, configuration, &cfg.MaxRedirects, "maxr", "max-redirects", 10, "Max redirects")
	addBoolFlag(fs, configuration, &cfg.HTTP3, "", "http3", false, "Probe https targets over HTTP/3 (QUIC)")
	formatter.Groups = append(formatter.Groups, configuration)

	// RATE-LIMIT
	rateLimit := &FlagGroup{Name: "RATE-LIMIT"}
	addIntFlag(fs, rateLimit, &cfg.Timeout, "t", "timeout", 1000, "The timeout for the connect phase (ms)")
	addIntFlag(fs, rateLimit, &cfg.ResponseTimeout, "rt", "response-timeout", 10000, "The timeout waiting for response headers (ms, 0 disables)")
	addIntFlag(fs, rateLimit, &cfg.Concurrency, "c", "concurrency", 20, "The number of concurrent requests")
	addIntFlag(fs, rateLimit, &cfg.RateLimit, "rl", "rate-limit", 0, "Maximum requests per second across all hosts (0 disables)")
	formatter.Groups = append(formatter.Groups, rateLimit)

	// DEBUG
	debug := &FlagGroup{Name: "DEBUG"}
	addBoolFlag(fs, debug, &cfg.Debug, "d", "debug", false, "Debug mode (log every request to stderr)")
	addBoolFlag(fs, debug, &cfg.Silent, "", "silent", false, "Silent mode (only errors in logs, no progress bar)")
	addStringFlag(fs, debug, &cfg.DebugLogFile, "", "debug-log", "", "Write detailed debug logs to file")
	formatter.Groups = append(formatter.Groups, debug)

	// MISCELLANEOUS
	misc := &FlagGroup{Name: "MISCELLANEOUS"}
	addBoolFlag(fs, misc, &cfg.Version, "v", "version", false, "Show version information")
	formatter.Groups = append(formatter.Groups, misc)

	return formatter
}

// SetFlags returns the keys of the flags that were set on fs, whichever of
// the short or long name was used
func (h *HelpFormatter) SetFlags(fs *flag.FlagSet) map[string]bool {
	keys := make(map[string]string)
	for _, group := range h.Groups {
		for _, f := range group.Flags {
			if f.Short != "" {
				keys[f.Short] = f.Key()
			}
			if f.Long != "" {
				keys[f.Long] = f.Key()
			}
		}
	}

	set := make(map[string]bool)
	fs.Visit(func(fl *flag.Flag) {
		if key, ok := keys[fl.Name]; ok {
			set[key] = true
		}
	})
	return set
}

// PrintUsage writes the grouped help output to w
func (h *HelpFormatter) PrintUsage(w io.Writer) {
	fmt.Fprintf(w, "%s - %s\n\n", h.ToolName, h.Description)
	fmt.Fprintf(w, "Usage:\n  %s [flags] < hosts.txt\n\nFlags:\n", h.ToolName)

	for _, group := range h.Groups {
		fmt.Fprintf(w, "\n%s:\n", group.Name)

		tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
		for _, f := range group.Flags {
			name := formatFlagName(f)
			typeSuffix := formatFlagType(f)
			defaultStr := formatFlagDefault(f)

			desc := f.Description
			if defaultStr != "" {
				desc += " " + defaultStr
			}

			fmt.Fprintf(tw, "   %s%s\t%s\n", name, typeSuffix, desc)
		}
		tw.Flush()
	}
}

// formatFlagName builds the "-short, -long" or just "-long" name string
func formatFlagName(f FlagDef) string {
	if f.Short != "" && f.Long != "" {
		return fmt.Sprintf("-%s, -%s", f.Short, f.Long)
	}
	if f.Short != "" {
		return fmt.Sprintf("-%s", f.Short)
	}
	return fmt.Sprintf("-%s", f.Long)
}

// formatFlagType returns the type suffix for non-bool flags
func formatFlagType(f FlagDef) string {
	switch f.Type {
	case StringType, StringListType:
		return " string"
	case IntType:
		return " int"
	default:
		return ""
	}
}

// formatFlagDefault returns a parenthesized default value string for non-zero defaults
func formatFlagDefault(f FlagDef) string {
	switch f.Type {
	case BoolType:
		if v, ok := f.Default.(bool); ok && v {
			return "(default true)"
		}
	case IntType:
		if v, ok := f.Default.(int); ok && v != 0 {
			return fmt.Sprintf("(default %d)", v)
		}
	case StringType:
		if v, ok := f.Default.(string); ok && v != "" {
			return fmt.Sprintf("(default %q)", v)
		}
	}
	return ""
}
