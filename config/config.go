// Package config provides centralized management for application settings, defaults, and the Viper-based configuration engine.
package config

import (
	"errors"
	"strings"

	"github.com/melodeck/melodeck/constant"
	"github.com/melodeck/melodeck/filesystem"
	"github.com/melodeck/melodeck/where"
	"github.com/spf13/viper"
)

// EnvKeyReplacer is a strings.Replacer used to normalize configuration keys into environment variable naming conventions.
var EnvKeyReplacer = strings.NewReplacer(".", "_")

// Setup initializes the global configuration state, including defaults, environment bindings, and localized file resolution.
func Setup() error {
	viper.SetConfigName(constant.App)
	viper.SetConfigType("toml")
	viper.SetFs(filesystem.API())
	viper.AddConfigPath(where.Config())

	viper.SetEnvPrefix(constant.App)
	viper.SetEnvKeyReplacer(EnvKeyReplacer)
	for _, env := range EnvExposed {
		viper.MustBindEnv(env)
	}

	viper.SetTypeByDefaultValue(true)
	for name, field := range Default {
		viper.SetDefault(name, field.Value)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}

	return nil
}
