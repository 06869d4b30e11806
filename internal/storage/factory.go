package storage

import (
	"context"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"tixel/internal/adapters/storage/gdrive"
	"tixel/internal/adapters/storage/localfs"
	miniostore "tixel/internal/adapters/storage/minio"
	"tixel/internal/pkg/errors"
)

// NewProvider builds the storage provider selected by STORAGE_PROVIDER
// (localfs, minio, gdrive). Defaults to localfs.
func NewProvider(ctx context.Context) (Provider, error) {
	provider := os.Getenv("STORAGE_PROVIDER")
	if provider == "" {
		provider = "localfs"
	}

	switch provider {
	case "localfs":
		root, err := mustEnv("STORAGE_LOCAL_ROOT")
		if err != nil {
			return nil, err
		}
		return localfs.New(root), nil

	case "minio":
		return newMinioProvider(ctx)

	case "gdrive":
		return newGDriveProvider(ctx)

	default:
		return nil, errors.Newf(errors.CodeValidation, "unknown storage provider: %s", provider)
	}
}

func newMinioProvider(ctx context.Context) (Provider, error) {
	endpoint, err := mustEnv("MINIO_ENDPOINT")
	if err != nil {
		return nil, err
	}
	accessKey, err := mustEnv("MINIO_ACCESS_KEY")
	if err != nil {
		return nil, err
	}
	secretKey, err := mustEnv("MINIO_SECRET_KEY")
	if err != nil {
		return nil, err
	}
	bucket, err := mustEnv("MINIO_BUCKET")
	if err != nil {
		return nil, err
	}

	return miniostore.New(ctx, miniostore.Config{
		Endpoint:  endpoint,
		AccessKey: accessKey,
		SecretKey: secretKey,
		Bucket:    bucket,
		UseSSL:    os.Getenv("MINIO_USE_SSL") == "true",
	})
}

func newGDriveProvider(ctx context.Context) (Provider, error) {
	clientID, err := mustEnv("GDRIVE_CLIENT_ID")
	if err != nil {
		return nil, err
	}
	clientSecret, err := mustEnv("GDRIVE_CLIENT_SECRET")
	if err != nil {
		return nil, err
	}
	refreshToken, err := mustEnv("GDRIVE_REFRESH_TOKEN")
	if err != nil {
		return nil, err
	}
	folderID := os.Getenv("GDRIVE_FOLDER_ID")

	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{drive.DriveFileScope},
	}

	tok := &oauth2.Token{RefreshToken: refreshToken}
	httpClient := conf.Client(ctx, tok)

	srv, err := drive.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, errors.Wrap(err, "storage.NewProvider", "create drive service")
	}

	return gdrive.NewClient(srv, folderID), nil
}

func mustEnv(k string) (string, error) {
	v := os.Getenv(k)
	if v == "" {
		return "", errors.Newf(errors.CodeFailedPrecond, "missing env: %s", k)
	}
	return v, nil
}
