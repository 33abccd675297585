package main

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/tenantdrive/internal/netx"
	"github.com/dmitrijs2005/tenantdrive/internal/server/models"
	"github.com/dmitrijs2005/tenantdrive/internal/server/storage"
	"github.com/spf13/cobra"
)

// S3 rejects parts below 5 MiB except the last one.
const minPartSize = 5 << 20

type uploadOptions struct {
	server   string
	token    string
	userID   string
	folderID string
	partSize int64
}

type finishResponse struct {
	File     *models.File `json:"file"`
	B2FileID string       `json:"b2FileId"`
}

// uploadFile drives start, one part-url and PUT per chunk, then finish.
// The session is cancelled when any part fails.
func uploadFile(ctx context.Context, client *http.Client, opts uploadOptions, name, contentType string, r io.Reader) (*finishResponse, error) {
	api := strings.TrimRight(opts.server, "/") + "/api/uploads/large"

	var started storage.LargeFile
	if err := netx.PostJSON(ctx, client, api+"/start", opts.token, map[string]any{
		"fileName": name, "contentType": contentType, "userId": opts.userID,
	}, &started); err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}

	sums, size, err := uploadParts(ctx, client, opts, api, started.FileID, r)
	if err != nil {
		cancelErr := netx.PostJSON(ctx, client, api+"/cancel", opts.token, map[string]any{"fileId": started.FileID}, nil)
		return nil, errors.Join(err, cancelErr)
	}

	var finished finishResponse
	if err := netx.PostJSON(ctx, client, api+"/finish", opts.token, map[string]any{
		"fileId":        started.FileID,
		"partSha1Array": sums,
		"fileName":      name,
		"fileSize":      size,
		"contentType":   contentType,
		"folderId":      opts.folderID,
		"userId":        opts.userID,
	}, &finished); err != nil {
		return nil, fmt.Errorf("finish: %w", err)
	}
	return &finished, nil
}

func uploadParts(ctx context.Context, client *http.Client, opts uploadOptions, api, fileID string, r io.Reader) ([]string, int64, error) {
	var sums []string
	var size int64
	buf := make([]byte, opts.partSize)

	for part := 1; ; part++ {
		n, err := io.ReadFull(r, buf)
		if errors.Is(err, io.EOF) && part > 1 {
			break
		}
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
			return nil, 0, fmt.Errorf("read part %d: %w", part, err)
		}
		chunk := buf[:n]

		sum := sha1.Sum(chunk)
		digest := hex.EncodeToString(sum[:])

		var target storage.UploadTarget
		if err := netx.PostJSON(ctx, client, api+"/part-url", opts.token, map[string]any{
			"fileId": fileID, "partNumber": part, "sha1": digest,
		}, &target); err != nil {
			return nil, 0, fmt.Errorf("part-url %d: %w", part, err)
		}
		if _, err := netx.PutPresigned(ctx, client, target.UploadURL, target.Headers, chunk); err != nil {
			return nil, 0, fmt.Errorf("put part %d: %w", part, err)
		}

		sums = append(sums, digest)
		size += int64(n)

		if n < len(buf) {
			break
		}
	}
	return sums, size, nil
}

func newUploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a file through a running server's multipart API",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts uploadOptions
			opts.server, _ = cmd.Flags().GetString("server")
			opts.token, _ = cmd.Flags().GetString("token")
			opts.userID, _ = cmd.Flags().GetString("user")
			opts.folderID, _ = cmd.Flags().GetString("folder")
			opts.partSize, _ = cmd.Flags().GetInt64("part-size")
			if opts.partSize < minPartSize {
				return fmt.Errorf("--part-size must be at least %d", minPartSize)
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			name := filepath.Base(args[0])
			contentType := mime.TypeByExtension(filepath.Ext(name))

			res, err := uploadFile(cmd.Context(), http.DefaultClient, opts, name, contentType, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s as %s (%d bytes, object %s)\n",
				name, res.File.ID, res.File.Size, res.B2FileID)
			return nil
		},
	}
	cmd.Flags().String("server", "http://localhost:8080", "tenantdrive HTTP address")
	cmd.Flags().String("token", "", "Bearer token")
	cmd.Flags().String("user", "", "Acting user id")
	cmd.Flags().String("folder", "", "Destination folder id")
	cmd.Flags().Int64("part-size", 8<<20, "Part size in bytes")
	return cmd
}
