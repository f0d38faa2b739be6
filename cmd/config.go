package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/melodeck/melodeck/color"
	"github.com/melodeck/melodeck/config"
	"github.com/melodeck/melodeck/constant"
	"github.com/melodeck/melodeck/fault"
	"github.com/melodeck/melodeck/filesystem"
	"github.com/melodeck/melodeck/style"
	"github.com/melodeck/melodeck/where"
	levenshtein "github.com/ka-weihe/fast-levenshtein"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func configFilePath() string {
	return filepath.Join(where.Config(), constant.App+".toml")
}

func errUnknownKey(key string) error {
	closest := lo.MinBy(lo.Keys(config.Default), func(a string, b string) bool {
		return levenshtein.Distance(key, a) < levenshtein.Distance(key, b)
	})

	return fault.Newf(
		fault.ValidationError,
		"config",
		"unknown key %s, did you mean %s?",
		style.Fg(color.Red)(key),
		style.Fg(color.Yellow)(closest),
	)
}

func lookupField(key string) config.Field {
	field, ok := config.Default[key]
	if !ok {
		handleErr(errUnknownKey(key))
	}
	return field
}

// parseValue converts raw command-line values to the type of the field's default.
func parseValue(field config.Field, raw []string) (any, error) {
	switch field.Value.(type) {
	case string:
		return raw[0], nil
	case int:
		v, err := strconv.Atoi(raw[0])
		if err != nil {
			return nil, fault.Newf(fault.ValidationError, "config.set", "%s expects an integer, got %q", field.Key, raw[0])
		}
		return v, nil
	case bool:
		v, err := strconv.ParseBool(raw[0])
		if err != nil {
			return nil, fault.Newf(fault.ValidationError, "config.set", "%s expects a boolean, got %q", field.Key, raw[0])
		}
		return v, nil
	case []string:
		return lo.FlatMap(raw, func(s string, _ int) []string {
			return lo.Compact(lo.Map(strings.Split(s, ","), func(p string, _ int) string { return strings.TrimSpace(p) }))
		}), nil
	default:
		return nil, fault.Newf(fault.ValidationError, "config.set", "%s cannot be set from the command line", field.Key)
	}
}

func writeConfig() {
	var notFound viper.ConfigFileNotFoundError
	if err := viper.WriteConfig(); errors.As(err, &notFound) {
		handleErr(viper.SafeWriteConfig())
	} else {
		handleErr(err)
	}
}

func completionConfigKeys(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return lo.Keys(config.Default), cobra.ShellCompDirectiveNoFileComp
}

func init() {
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show and change settings",
}

func init() {
	configCmd.AddCommand(configInfoCmd)
	configInfoCmd.Flags().StringSliceP("key", "k", []string{}, "Only describe these keys")
	addJSONFlag(configInfoCmd)
	_ = configInfoCmd.RegisterFlagCompletionFunc("key", completionConfigKeys)
}

var configInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Describe settings with their current values",
	Run: func(cmd *cobra.Command, args []string) {
		keys := lo.Must(cmd.Flags().GetStringSlice("key"))

		fields := lo.Values(config.Default)
		if len(keys) > 0 {
			fields = lo.Map(keys, func(k string, _ int) config.Field { return lookupField(k) })
		}

		sort.Slice(fields, func(i, j int) bool {
			return fields[i].Key < fields[j].Key
		})

		if wantsJSON(cmd) {
			printJSON(cmd, lo.ToSlicePtr(fields))
			return
		}

		for i, field := range fields {
			cmd.Print(field.Pretty())
			if i < len(fields)-1 {
				cmd.Println()
				cmd.Println()
			}
		}
	},
}

func init() {
	configCmd.AddCommand(configSetCmd)
}

var configSetCmd = &cobra.Command{
	Use:               "set <key> <value>...",
	Short:             "Change a setting",
	Long:              "Change a setting. List settings take several values, or one comma separated value.",
	Args:              cobra.MinimumNArgs(2),
	ValidArgsFunction: completionConfigKeys,
	Run: func(cmd *cobra.Command, args []string) {
		field := lookupField(args[0])

		value, err := parseValue(field, args[1:])
		handleErr(err)

		viper.Set(field.Key, value)
		writeConfig()

		printSuccess(cmd, "set %s to %s", style.Fg(color.Purple)(field.Key), style.Fg(color.Yellow)(fmt.Sprint(value)))
	},
}

func init() {
	configCmd.AddCommand(configGetCmd)
}

var configGetCmd = &cobra.Command{
	Use:               "get <key>",
	Short:             "Print the current value of a setting",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completionConfigKeys,
	Run: func(cmd *cobra.Command, args []string) {
		field := lookupField(args[0])
		cmd.Println(viper.Get(field.Key))
	},
}

func init() {
	configCmd.AddCommand(configWriteCmd)
	configWriteCmd.Flags().BoolP("force", "f", false, "Overwrite an existing config file")
}

var configWriteCmd = &cobra.Command{
	Use:   "write",
	Short: "Write the current settings to the config file",
	Run: func(cmd *cobra.Command, args []string) {
		path := configFilePath()

		if lo.Must(cmd.Flags().GetBool("force")) {
			handleErr(filesystem.RemoveIfExists(path))
		}

		handleErr(viper.SafeWriteConfig())
		printSuccess(cmd, "wrote config to %s", path)
	},
}

func init() {
	configCmd.AddCommand(configDeleteCmd)
}

var configDeleteCmd = &cobra.Command{
	Use:     "delete",
	Aliases: []string{"remove"},
	Short:   "Delete the config file",
	Run: func(cmd *cobra.Command, args []string) {
		handleErr(filesystem.API().Remove(configFilePath()))
		printSuccess(cmd, "deleted config")
	},
}

func init() {
	configCmd.AddCommand(configResetCmd)
	configResetCmd.Flags().BoolP("all", "a", false, "Reset every setting")
}

var configResetCmd = &cobra.Command{
	Use:               "reset [key]",
	Short:             "Restore a setting to its default value",
	Args:              cobra.MaximumNArgs(1),
	ValidArgsFunction: completionConfigKeys,
	Run: func(cmd *cobra.Command, args []string) {
		all := lo.Must(cmd.Flags().GetBool("all"))

		switch {
		case all && len(args) == 0:
			for k, field := range config.Default {
				viper.Set(k, field.Value)
			}
			writeConfig()
			printSuccess(cmd, "reset all settings")
		case len(args) == 1 && !all:
			field := lookupField(args[0])
			viper.Set(field.Key, field.Value)
			writeConfig()
			printSuccess(cmd, "reset %s to %s", style.Fg(color.Purple)(field.Key), style.Fg(color.Yellow)(fmt.Sprint(field.Value)))
		default:
			handleErr(fault.New(fault.ValidationError, "config.reset", "give either a key or --all"))
		}
	},
}
