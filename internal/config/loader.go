package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/lensferno/imgtool/internal/errors"
)

const (
	appName   = "imgtool"
	envPrefix = "IMGTOOL_"
)

// Loader layers the configuration sources. Later layers win:
// built-in defaults, the config file, the .env file, the process
// environment, then Overrides.
type Loader struct {
	// ConfigFile is an explicit config path. When empty the XDG config
	// directories are searched and a missing file is not an error.
	ConfigFile string
	// EnvFile is read when it exists. Empty means ".env".
	EnvFile string
	// Environ replaces os.Environ when non-nil.
	Environ []string
	// Overrides are dotted keys set from the command line.
	Overrides map[string]interface{}
}

type rawBytesProvider struct{ bytes []byte }

func (r *rawBytesProvider) ReadBytes() ([]byte, error) { return r.bytes, nil }
func (r *rawBytesProvider) Read() (map[string]interface{}, error) {
	return nil, errors.New(errors.ErrConfig, "not implemented")
}

func (l Loader) Load() (*Settings, error) {
	k := koanf.New(".")

	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfig, "load defaults")
	}

	path, err := l.configPath()
	if err != nil {
		return nil, err
	}
	if path != "" {
		parser, err := parserFor(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, errors.Wrapf(err, errors.ErrConfig, "load config file %s", path).WithDetail("path", path)
		}
	}

	env, err := l.environment()
	if err != nil {
		return nil, err
	}
	if len(env) > 0 {
		if err := k.Load(confmap.Provider(env, "."), nil); err != nil {
			return nil, errors.Wrap(err, errors.ErrConfig, "load environment")
		}
	}

	if len(l.Overrides) > 0 {
		if err := k.Load(confmap.Provider(l.Overrides, "."), nil); err != nil {
			return nil, errors.Wrap(err, errors.ErrConfig, "load flag overrides")
		}
	}

	var s Settings
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &s,
			WeaklyTypedInput: true,
		},
	}
	if err := k.UnmarshalWithConf("", &s, unmarshalConf); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfig, "decode configuration")
	}
	return &s, nil
}

func (l Loader) configPath() (string, error) {
	if l.ConfigFile != "" {
		if _, err := os.Stat(l.ConfigFile); err != nil {
			return "", errors.Wrapf(err, errors.ErrConfig, "config file %s", l.ConfigFile).WithDetail("path", l.ConfigFile)
		}
		return l.ConfigFile, nil
	}
	for _, name := range []string{"config.toml", "config.yaml", "config.yml"} {
		if path, err := xdg.SearchConfigFile(filepath.Join(appName, name)); err == nil {
			return path, nil
		}
	}
	return "", nil
}

// DefaultConfigPath is where a user config file is expected.
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.toml")
}

func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return toml.Parser(), nil
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	default:
		return nil, errors.Newf(errors.ErrConfig, "unsupported config file type %q (want .toml, .yaml or .yml)", filepath.Ext(path)).
			WithDetail("path", path)
	}
}

// environment collects IMGTOOL_* variables from the .env file and then the
// process environment. A double underscore separates nesting levels, so
// IMGTOOL_JPEG__QUALITY sets jpeg.quality.
func (l Loader) environment() (map[string]interface{}, error) {
	out := make(map[string]interface{})

	envFile := l.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		vars, err := godotenv.Read(envFile)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrConfig, "read %s", envFile).WithDetail("path", envFile)
		}
		for name, value := range vars {
			if key, ok := envKey(name); ok {
				out[key] = value
			}
		}
	}

	environ := l.Environ
	if environ == nil {
		environ = os.Environ()
	}
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if key, ok := envKey(name); ok {
			out[key] = value
		}
	}
	return out, nil
}

func envKey(name string) (string, bool) {
	if !strings.HasPrefix(name, envPrefix) || len(name) == len(envPrefix) {
		return "", false
	}
	key := strings.ToLower(strings.TrimPrefix(name, envPrefix))
	return strings.ReplaceAll(key, "__", "."), true
}

var flagKeys = map[string]string{
	"prefix":                 "prefix",
	"suffix":                 "suffix",
	"target-format":          "target_format",
	"resize":                 "resize.directive",
	"continue-on-error":      "continue_on_error",
	"delete-origin":          "delete_origin",
	"dry-run":                "dry_run",
	"skip-if-bigger":         "skip_if_bigger",
	"keep-metadata":          "keep_metadata",
	"lossless":               "lossless",
	"jpeg-quality":           "jpeg.quality",
	"png-optimization-level": "png.optimization_level",
	"gif-quality":            "gif.quality",
	"tiff-algorithm":         "tiff.algorithm",
	"enlarge-policy":         "enlarge_policy",
	"progress":               "progress",
	"plan-format":            "plan_format",
}

// KeyForFlag maps a command line flag name to its configuration key.
func KeyForFlag(flag string) (string, bool) {
	key, ok := flagKeys[flag]
	return key, ok
}
