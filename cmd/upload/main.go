package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/festa-dev/festa-backend/internal/uploader"
)

// upload is a batch upload client for the festa API. It drives each file
// through grant issuance, direct-to-storage transfer and finalization.
func main() {
	serverURL := flag.String("server", "http://localhost:8080", "festa API base URL")
	token := flag.String("token", "", "guest access token")
	situation := flag.String("situation", "", "situation ID to tag uploads with")
	profile := flag.String("profile", "capable", "device profile: capable or constrained")
	flag.Parse()

	if *token == "" {
		fmt.Fprintln(os.Stderr, "missing -token")
		os.Exit(2)
	}
	paths := flag.Args()
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "usage: upload -token TOKEN [flags] FILE...")
		os.Exit(2)
	}

	deviceProfile := uploader.ProfileCapable
	if *profile == "constrained" {
		deviceProfile = uploader.ProfileConstrained
	}

	files := make([]uploader.BatchFile, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cannot stat %s: %v\n", p, err)
			os.Exit(1)
		}
		path := p
		files = append(files, uploader.BatchFile{
			FileName:  filepath.Base(path),
			MimeType:  mime.TypeByExtension(filepath.Ext(path)),
			SizeBytes: info.Size(),
			Open: func() (io.ReadCloser, error) {
				return os.Open(path)
			},
		})
	}

	api := uploader.NewClient(*serverURL, *token)
	coordinator := uploader.NewCoordinator(api, uploader.NewTransport(), deviceProfile, 100<<20,
		func(p uploader.FileProgress) {
			if p.State.Terminal() || p.State == uploader.StateTransferring {
				pct := int64(0)
				if p.TotalBytes > 0 {
					pct = p.SentBytes * 100 / p.TotalBytes
				}
				fmt.Printf("%-40s %-13s %3d%%\n", p.FileName, p.State, pct)
			}
		}, nil)

	result, err := coordinator.UploadBatch(context.Background(), files, *situation)
	if err != nil {
		fmt.Fprintf(os.Stderr, "upload failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\ncompleted: %d  failed: %d\n", result.Completed, result.Failed)
	for _, p := range result.Files {
		if p.Err != nil {
			fmt.Printf("  %s: %v\n", p.FileName, p.Err)
		}
	}
	if result.Failed > 0 {
		os.Exit(1)
	}
}
