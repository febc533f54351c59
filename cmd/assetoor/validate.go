package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/ethpandaops/assetoor/pkg/storage"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var validateConnect bool

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Resolve the configuration over the defaults and report every missing
setting. With --connect, also open a storage session and check that the
primary bucket is reachable.`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().BoolVar(&validateConnect, "connect", false,
		"Open a storage session and check the primary bucket")
}

func runValidate(cmd *cobra.Command, args []string) error {
	settings, err := resolveSettings()
	if err != nil {
		return err
	}

	provider := settings.Provider()

	if registered := storage.Providers(); !slices.Contains(registered, provider.Name) {
		return fmt.Errorf("provider %q has no storage implementation (available: %s)",
			provider.Name, strings.Join(registered, ", "))
	}

	log.WithFields(logrus.Fields{
		"provider":      provider.Name,
		"url":           settings.URL(),
		"threshold":     settings.Threshold(),
		"access_policy": settings.AccessPolicy(),
		"buckets":       strings.Join(settings.Buckets().Names(), ","),
	}).Info("Configuration is valid")

	if !validateConnect {
		return nil
	}

	conn := storage.NewConnection(log, settings)
	defer conn.Close()

	if _, err := conn.Connect(cmd.Context()); err != nil {
		return fmt.Errorf("checking storage: %w", err)
	}

	return nil
}
