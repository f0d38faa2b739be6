package config

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"text/template"

	"github.com/melodeck/melodeck/color"
	"github.com/melodeck/melodeck/constant"
	"github.com/melodeck/melodeck/key"
	"github.com/melodeck/melodeck/style"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// Field represents a configuration field definition.
type Field struct {
	Key         string
	Value       any
	Description string
}

// Pretty returns a colored string representation of the field for display.
func (f *Field) Pretty() string {
	var b strings.Builder
	lo.Must0(prettyTemplate.Execute(&b, f))
	return b.String()
}

// Env returns the environment variable name for this field.
func (f *Field) Env() string {
	env := strings.ToUpper(EnvKeyReplacer.Replace(f.Key))
	prefix := strings.ToUpper(constant.App + "_")
	if strings.HasPrefix(env, prefix) {
		return env
	}
	return prefix + env
}

// MarshalJSON customizes JSON output to include current and default values.
func (f *Field) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Key         string `json:"key"`
		Value       any    `json:"value"`
		Default     any    `json:"default"`
		Description string `json:"description"`
		Type        string `json:"type"`
	}{
		Key:         f.Key,
		Value:       viper.Get(f.Key),
		Default:     f.Value,
		Description: f.Description,
		Type:        f.typeName(),
	})
}

func (f *Field) typeName() string {
	switch f.Value.(type) {
	case string:
		return "string"
	case int:
		return "int"
	case bool:
		return "bool"
	case []string:
		return "[]string"
	default:
		return "unknown"
	}
}

// Default holds the map of all configuration fields.
var Default = make(map[string]Field)

// EnvExposed holds keys that are bound to environment variables.
var EnvExposed []string

func init() {
	register := func(k string, v any, desc string) {
		if _, exists := Default[k]; exists {
			panic("Duplicate config key: " + k)
		}
		Default[k] = Field{Key: k, Value: v, Description: desc}
		EnvExposed = append(EnvExposed, k)
	}

	register(key.PlayerCandidates, []string{"mpv", "mpv.exe"}, "Ordered list of mpv executables to try.\nThe first one found on disk or answering --version is used")
	register(key.PlayerSocket, "", "Control socket address passed to mpv.\nEmpty selects a platform default (named pipe on Windows)")
	register(key.PlayerGraceMs, 300, "Milliseconds to wait after a graceful termination signal before killing mpv")
	register(key.PlayerSettleMs, 150, "Milliseconds to wait after a spawn or teardown before reusing the control socket")
	register(key.ResolverCandidates, []string{"yt-dlp", "yt-dlp.exe"}, "Ordered list of yt-dlp executables to try")
	register(key.ResolverFormat, "bestaudio/best", "yt-dlp format selector used to resolve stream URLs")
	register(key.IPCTimeoutMs, 800, "Milliseconds to wait for a reply on the control socket")
	register(key.IPCConnectRetries, 10, "Connection attempts made before the control socket is declared unreachable")
	register(key.IPCConnectBackoffMs, 100, "Milliseconds between control socket connection attempts")
	register(key.CacheTTLMinutes, 5, "Lifetime of cached stream URLs, metadata and search results in minutes")
	register(key.CacheMaxEntries, 512, "Maximum entries kept per lookup cache. 0 disables the bound")
	register(key.PlaybackDebounceMs, 1000, "Repeated play requests for the same target within this window are ignored")
	register(key.SearchDefaultLimit, 30, "Number of search results requested when no limit is given (5-50)")
	register(key.SearchShowQuerySuggestions, true, "Suggest previous queries in shell completion")
	register(key.HistoryMax, 100, "Maximum number of listening history entries kept")
	register(key.HistorySaveOnPlay, true, "Record every successfully started track in the listening history")
	register(key.ServerAddr, ":3000", "Listen address of the HTTP API started by \"serve --http\"")
	register(key.AssistantModel, "gemini-2.5-flash-lite", "Gemini model used by the chat assistant")
	register(key.IconsVariant, "plain", "Icons variant.\nAvailable options are: emoji, nerd, plain")
	register(key.LogsWrite, false, "Write logs")
	register(key.LogsLevel, "info", "Available options are: (from less to most verbose)\npanic, fatal, error, warn, info, debug, trace")
	register(key.LogsJson, false, "Use json format for logs")
	register(key.CliColored, true, "Enable colored CLI output")
	register(key.CliVersionCheck, false, "Check for new releases when showing help")
}

var prettyTemplate = lo.Must(template.New("pretty").Funcs(template.FuncMap{
	"faint":    style.Faint,
	"bold":     style.Bold,
	"purple":   style.Fg(color.Purple),
	"blue":     style.Fg(color.Blue),
	"value":    func(k string) any { return viper.Get(k) },
	"typename": func(v any) string { return reflect.TypeOf(v).String() },
	"hl": func(v any) string {
		switch value := v.(type) {
		case bool:
			b := strconv.FormatBool(value)
			if value {
				return style.Fg(color.Green)(b)
			}
			return style.Fg(color.Red)(b)
		case string:
			return style.Fg(color.Yellow)(value)
		default:
			return fmt.Sprint(value)
		}
	},
}).Parse(`{{ faint .Description }}
{{ blue "Key:" }}     {{ purple .Key }}
{{ blue "Env:" }}     {{ .Env }}
{{ blue "Value:" }}   {{ hl (value .Key) }}
{{ blue "Default:" }} {{ hl (.Value) }}
{{ blue "Type:" }}    {{ typename .Value }}`))
