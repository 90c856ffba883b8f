package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// MaxAvatarSize caps avatar uploads
const MaxAvatarSize = 5 << 20

var (
	ErrImageServiceDisabled = errors.New("image uploads are not configured")
	ErrInvalidImage         = errors.New("invalid image")
)

// AvatarUploader stores profile pictures and returns their public URL
type AvatarUploader interface {
	UploadAvatar(ctx context.Context, file multipart.File, filename, userID string) (string, error)
}

// ImageService uploads avatars to Cloudinary
type ImageService struct {
	cld *cloudinary.Cloudinary
}

// NewImageService builds a Cloudinary client
func NewImageService(cloudName, apiKey, apiSecret string) (*ImageService, error) {
	if cloudName == "" || apiKey == "" || apiSecret == "" {
		return nil, ErrImageServiceDisabled
	}

	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}
	return &ImageService{cld: cld}, nil
}

var allowedImageTypes = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// ValidateAvatar checks the extension and size of an upload and rewinds it
func ValidateAvatar(file multipart.File, filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedImageTypes[ext] {
		return fmt.Errorf("%w: file type %q not allowed, use jpg, jpeg, png, gif or webp", ErrInvalidImage, ext)
	}

	n, err := io.Copy(io.Discard, io.LimitReader(file, MaxAvatarSize+1))
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	if n > MaxAvatarSize {
		return fmt.Errorf("%w: file larger than %d bytes", ErrInvalidImage, MaxAvatarSize)
	}

	_, err = file.Seek(0, io.SeekStart)
	return err
}

// UploadAvatar stores the image under a per-user public ID, replacing any previous one
func (s *ImageService) UploadAvatar(ctx context.Context, file multipart.File, filename, userID string) (string, error) {
	overwrite := true
	result, err := s.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		PublicID:       fmt.Sprintf("user_%s", userID),
		Folder:         "ridealong/avatars",
		Overwrite:      &overwrite,
		ResourceType:   "image",
		Transformation: "c_fill,g_face,h_300,w_300/q_auto,f_auto",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	return result.SecureURL, nil
}
