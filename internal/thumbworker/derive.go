package thumbworker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"

	"github.com/disintegration/imaging"
)

// ThumbnailSize is the edge length of derived previews. Thumbnails are
// square cover-fit crops: scaled to fill, centered, excess trimmed.
const ThumbnailSize = 400

// DeriveImage decodes an image stream and returns an encoded square
// thumbnail plus its content type. PNG sources keep PNG to preserve
// transparency; everything else becomes JPEG.
func DeriveImage(src io.Reader, mimeType string) ([]byte, string, error) {
	img, err := imaging.Decode(src, imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("decoding image: %w", err)
	}

	thumb := imaging.Fill(img, ThumbnailSize, ThumbnailSize, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if mimeType == "image/png" {
		if err := imaging.Encode(&buf, thumb, imaging.PNG); err != nil {
			return nil, "", fmt.Errorf("encoding thumbnail: %w", err)
		}
		return buf.Bytes(), "image/png", nil
	}
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, "", fmt.Errorf("encoding thumbnail: %w", err)
	}
	return buf.Bytes(), "image/jpeg", nil
}

// DeriveVideoFrame extracts the first frame of a video stream with ffmpeg
// and thumbnails it. Requires ffmpeg on PATH.
func DeriveVideoFrame(ctx context.Context, src io.Reader) ([]byte, string, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, "", fmt.Errorf("ffmpeg not available: %w", err)
	}

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-hide_banner", "-loglevel", "error",
		"-i", "pipe:0",
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"pipe:1",
	)
	cmd.Stdin = src
	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf

	if err := cmd.Run(); err != nil {
		return nil, "", fmt.Errorf("extracting video frame: %w (%s)", err, errBuf.String())
	}
	return DeriveImage(&out, "image/jpeg")
}
