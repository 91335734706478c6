// Package imaging prepares picked images for submission: MIME sniffing,
// size limits, and batch base64 encoding with deterministic slot order.
package imaging

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gofrs/uuid/v5"
	"golang.org/x/sync/errgroup"

	"github.com/amehdaoui/dukkan/internal/errs"
	"github.com/amehdaoui/dukkan/internal/model"
)

// MaxSlots is the number of image slots a product carries.
const MaxSlots = 4

var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// Load inspects an image file and returns a PendingImage ready for
// encoding. The file is not read fully here; EncodeBatch does that at
// submission time.
func Load(path string, maxSize int64) (model.PendingImage, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return model.PendingImage{}, errs.Wrap(errs.CategoryValidation, fmt.Sprintf("image not readable: %s", path), err)
	}
	if fi.Size() > maxSize {
		return model.PendingImage{}, errs.New(errs.CategoryValidation,
			fmt.Sprintf("image %s exceeds the %d MB limit", filepath.Base(path), maxSize>>20))
	}
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return model.PendingImage{}, errs.Wrap(errs.CategoryValidation, "image type detection failed", err)
	}
	if !allowedTypes[mt.String()] {
		return model.PendingImage{}, errs.New(errs.CategoryValidation,
			fmt.Sprintf("unsupported image type %s, only JPEG and PNG are accepted", mt.String()))
	}
	name := filepath.Base(path)
	if name == "." || name == string(filepath.Separator) {
		name = generatedName(mt.Extension())
	}
	return model.PendingImage{URI: path, Name: name, Type: mt.String()}, nil
}

func generatedName(ext string) string {
	if id, err := uuid.NewV4(); err == nil {
		return "image_" + id.String() + ext
	}
	return fmt.Sprintf("image_%d%s", time.Now().UnixMilli(), ext)
}

// EncodeBatch converts up to MaxSlots images to base64 as one concurrent
// batch. The returned slice preserves input order regardless of completion
// order; any single failure fails the whole batch.
func EncodeBatch(ctx context.Context, images []model.PendingImage) ([]model.PendingImage, error) {
	if len(images) > MaxSlots {
		return nil, errs.New(errs.CategoryValidation, fmt.Sprintf("maximum %d images allowed", MaxSlots))
	}
	out := make([]model.PendingImage, len(images))
	g, ctx := errgroup.WithContext(ctx)
	for i, img := range images {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			enc, err := encode(img)
			if err != nil {
				return err
			}
			out[i] = enc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// encode reads the file and produces a data URI; the backend splits on the
// comma, so the prefix is required.
func encode(img model.PendingImage) (model.PendingImage, error) {
	if img.Base64 != "" {
		return img, nil
	}
	data, err := os.ReadFile(img.URI)
	if err != nil {
		return model.PendingImage{}, errs.Wrap(errs.CategoryValidation, fmt.Sprintf("read image %s", img.Name), err)
	}
	img.Base64 = fmt.Sprintf("data:%s;base64,%s", img.Type, base64.StdEncoding.EncodeToString(data))
	return img, nil
}

// FormFields flattens encoded images into the 1-based, dense
// image_base64_N / image_name_N payload fields.
func FormFields(images []model.PendingImage) map[string]any {
	fields := make(map[string]any, len(images)*2)
	for i, img := range images {
		fields[fmt.Sprintf("image_base64_%d", i+1)] = img.Base64
		fields[fmt.Sprintf("image_name_%d", i+1)] = img.Name
	}
	return fields
}
