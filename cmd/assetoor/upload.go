package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethpandaops/assetoor/pkg/assets"
	"github.com/ethpandaops/assetoor/pkg/cdnurl"
	"github.com/ethpandaops/assetoor/pkg/config"
	"github.com/ethpandaops/assetoor/pkg/manifest"
	"github.com/ethpandaops/assetoor/pkg/report"
	"github.com/ethpandaops/assetoor/pkg/storage"
	"github.com/ethpandaops/assetoor/pkg/upload"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	uploadDir           string
	uploadHidden        bool
	uploadNoColor       bool
	uploadQuiet         bool
	uploadMetricsFile   string
	uploadMetricsPrefix string
)

var uploadCmd = &cobra.Command{
	Use:   "upload [FILE...]",
	Short: "Upload a directory of assets to object storage",
	Long: `Upload every file below --dir to the first configured bucket.
Files given as arguments are uploaded under their base name. Uploads are sent in batches of "threshold" requests. A failing file does
not stop the run; the command exits non-zero if any file failed.`,
	RunE: runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)
	uploadCmd.Flags().StringVar(&uploadDir, "dir", "",
		"Path to the asset directory to upload")
	uploadCmd.Flags().BoolVar(&uploadHidden, "include-hidden", false,
		"Upload dot files and directories")
	uploadCmd.Flags().BoolVar(&uploadNoColor, "no-color", false,
		"Disable colored progress output")
	uploadCmd.Flags().BoolVar(&uploadQuiet, "quiet", false,
		"Report progress through the logger instead of the terminal")
	uploadCmd.Flags().StringVar(&uploadMetricsFile, "metrics-file", "",
		"Write Prometheus metrics for the run to this file")
	uploadCmd.Flags().StringVar(&uploadMetricsPrefix, "metrics-namespace", "assetoor",
		"Namespace for Prometheus metrics")
}

func runUpload(cmd *cobra.Command, args []string) error {
	settings, err := resolveSettings()
	if err != nil {
		return err
	}

	files, err := collectAssets(uploadDir, uploadHidden, args)
	if err != nil {
		return err
	}

	if len(files) == 0 {
		log.WithField("dir", uploadDir).Warn("No assets found")

		return nil
	}

	var reporter report.Reporter = report.NewConsoleReporter(os.Stdout, uploadNoColor)
	if uploadQuiet {
		reporter = report.NewLogReporter(log)
	}

	var metrics *report.MetricsReporter

	if uploadMetricsFile != "" {
		metrics, err = report.NewMetricsReporter(uploadMetricsPrefix)
		if err != nil {
			return fmt.Errorf("creating metrics reporter: %w", err)
		}

		reporter = report.Multi(reporter, metrics)
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	conn := storage.NewConnection(log, settings)
	defer conn.Close()

	uploader := upload.NewUploader(log, settings, conn, reporter)

	log.WithFields(logrus.Fields{
		"dir":       uploadDir,
		"assets":    len(files),
		"bucket":    settings.PrimaryBucket(),
		"threshold": settings.Threshold(),
	}).Info("Uploading assets")

	results, err := uploader.Upload(ctx, files)
	if err != nil {
		return fmt.Errorf("uploading assets: %w", err)
	}

	if metrics != nil {
		if err := metrics.WriteTextfile(uploadMetricsFile); err != nil {
			log.WithError(err).Warn("Failed to write metrics file")
		}
	}

	// The manifest is written even after a shutdown signal.
	if err := recordManifest(context.WithoutCancel(ctx), settings, results); err != nil {
		log.WithError(err).Warn("Failed to record upload manifest")
	}

	var failed int

	for _, res := range results {
		if !res.OK() {
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d assets failed to upload", failed, len(results))
	}

	return nil
}

// collectAssets returns the assets below dir followed by the files named
// in args, each published under its base name.
func collectAssets(dir string, includeHidden bool, args []string) ([]upload.Asset, error) {
	if dir == "" && len(args) == 0 {
		return nil, errors.New("nothing to upload: set --dir or pass files")
	}

	var out []upload.Asset

	if dir != "" {
		found, err := assets.Discover(dir, includeHidden)
		if err != nil {
			return nil, fmt.Errorf("discovering assets: %w", err)
		}

		out = append(out, found...)
	}

	for _, arg := range args {
		a, err := assets.FileAsset(arg, filepath.Base(arg))
		if err != nil {
			return nil, err
		}

		out = append(out, a)
	}

	return out, nil
}

// recordManifest stores the run's results when a manifest is configured.
func recordManifest(
	ctx context.Context,
	settings *config.UploadSettings,
	results []upload.Result,
) error {
	m := settings.Manifest()
	if m == nil || !m.Enabled {
		return nil
	}

	store := manifest.NewStore(log, &m.Database)
	if err := store.Start(ctx); err != nil {
		return fmt.Errorf("starting manifest store: %w", err)
	}

	defer func() { _ = store.Stop() }()

	bucket := settings.PrimaryBucket()
	runID := uuid.NewString()

	if err := store.Record(ctx, runID, bucket, results, func(key string) string {
		return cdnurl.Compose(settings, bucket, key)
	}); err != nil {
		return err
	}

	log.WithField("run_id", runID).Info("Upload manifest recorded")

	return nil
}
