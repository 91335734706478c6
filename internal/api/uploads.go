package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/amehdaoui/dukkan/internal/errs"
	"github.com/amehdaoui/dukkan/internal/model"
)

// UploadResponse is the success shape of the image upload endpoint.
type UploadResponse struct {
	URL string `json:"url"`
}

// UploadImage posts one image as multipart form data (field name "image")
// through the shared client; the transport keeps the multipart content type
// and still attaches credentials.
func (c *Client) UploadImage(ctx context.Context, img model.PendingImage) (*UploadResponse, error) {
	f, err := os.Open(img.URI)
	if err != nil {
		return nil, errs.Wrap(errs.CategoryValidation, fmt.Sprintf("open image %s", img.Name), err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("image", img.Name)
	if err != nil {
		return nil, errs.Wrap(errs.CategoryUnknown, "build multipart form", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, errs.Wrap(errs.CategoryUnknown, "read image data", err)
	}
	if err := w.Close(); err != nil {
		return nil, errs.Wrap(errs.CategoryUnknown, "finalize multipart form", err)
	}

	var out UploadResponse
	if err := c.http.PostMultipart(ctx, c.cfg.Endpoints.UploadImage, w.FormDataContentType(), &buf, &out); err != nil {
		return nil, fmt.Errorf("upload image %s: %w", img.Name, err)
	}
	return &out, nil
}

// UploadImages uploads a batch concurrently. URLs come back in input order;
// one failure fails the batch.
func (c *Client) UploadImages(ctx context.Context, images []model.PendingImage) ([]string, error) {
	if len(images) > c.cfg.MaxImages {
		return nil, errs.New(errs.CategoryValidation, fmt.Sprintf("maximum %d images allowed", c.cfg.MaxImages))
	}
	urls := make([]string, len(images))
	g, ctx := errgroup.WithContext(ctx)
	for i, img := range images {
		g.Go(func() error {
			resp, err := c.UploadImage(ctx, img)
			if err != nil {
				return err
			}
			urls[i] = resp.URL
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return urls, nil
}
