package services

import (
	"context"
	"fmt"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

const moodImageFolder = "reflect/moods"

// remoteUploader is the part of the Cloudinary upload API the mirror uses.
type remoteUploader interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
}

// CloudinaryService re-hosts mood images on Cloudinary so entries keep
// working after the search provider expires its links.
type CloudinaryService struct {
	upload remoteUploader
	folder string
}

func NewCloudinaryService(cloudName, apiKey, apiSecret string) (*CloudinaryService, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}

	return &CloudinaryService{
		upload: &cld.Upload,
		folder: moodImageFolder,
	}, nil
}

// Mirror uploads the image at remoteURL and returns its secure Cloudinary URL.
func (s *CloudinaryService) Mirror(ctx context.Context, remoteURL string) (string, error) {
	result, err := s.upload.Upload(ctx, remoteURL, uploader.UploadParams{
		Folder:       s.folder,
		ResourceType: "image",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to Cloudinary: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("cloudinary: %s", result.Error.Message)
	}
	return result.SecureURL, nil
}
