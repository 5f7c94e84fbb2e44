package app

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/autopeer-io/fleetpulse/pkg/log"
)

const configFlagName = "config"

func addConfigFlag(name string, fs *pflag.FlagSet, cfgFile *string) {
	fs.StringVarP(cfgFile, configFlagName, "c", *cfgFile,
		"Read configuration from the specified file. Supported formats: yaml, json, toml. "+
			"When omitted, "+name+".yaml is searched in the working directory and $HOME/."+name+".")
}

// newViper layers configuration as flags > environment > config file > defaults.
// Environment keys are {PREFIX}_{SECTION}_{KEY}, e.g. FLEETPULSE_MQTT_BROKER.
func newViper(name, envPrefix, cfgFile string) (*viper.Viper, error) {
	// .env only seeds the process environment; real variables win.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn("Failed to load .env file", "error", err)
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(name)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, "."+name))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, err
		}
		return v, nil
	}

	log.Info("Using config file", "file", v.ConfigFileUsed())

	// Options are read once at startup; changes are reported so operators
	// know a restart is needed.
	v.OnConfigChange(func(e fsnotify.Event) {
		log.Warn("Config file changed, restart to apply", "file", e.Name, "op", e.Op.String())
	})
	v.WatchConfig()

	return v, nil
}
