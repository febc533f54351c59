package main

import (
	"fmt"

	"github.com/ethpandaops/assetoor/pkg/cdnurl"
	"github.com/ethpandaops/assetoor/pkg/upload"
	"github.com/spf13/cobra"
)

var urlBucket string

var urlCmd = &cobra.Command{
	Use:   "url PATH [PATH...]",
	Short: "Print the public URL of uploaded assets",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runURL,
}

func init() {
	rootCmd.AddCommand(urlCmd)
	urlCmd.Flags().StringVar(&urlBucket, "bucket", "",
		"Bucket name (defaults to the first configured bucket)")
}

func runURL(cmd *cobra.Command, args []string) error {
	settings, err := resolveSettings()
	if err != nil {
		return err
	}

	bucket := settings.PrimaryBucket()

	if urlBucket != "" {
		if _, ok := settings.Buckets().Lookup(urlBucket); !ok {
			return fmt.Errorf("bucket %q is not configured", urlBucket)
		}

		bucket = urlBucket
	}

	for _, p := range args {
		fmt.Fprintln(cmd.OutOrStdout(), cdnurl.Compose(settings, bucket, upload.ObjectKey(settings, p)))
	}

	return nil
}
