package assets

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/sas"

	"github.com/manualbridge/manualbridge/internal/domain"
)

// AzureStore implements BlobStore on Azure blob storage with shared-key SAS
// signing.
type AzureStore struct {
	client      *azblob.Client
	credential  *azblob.SharedKeyCredential
	accountName string
}

// NewAzureStore builds a store from a storage account connection string.
func NewAzureStore(connectionString string) (*AzureStore, error) {
	if connectionString == "" {
		return nil, domain.ConfigError("Azure storage connection string is required", nil)
	}

	accountName, accountKey, err := parseConnectionString(connectionString)
	if err != nil {
		return nil, err
	}

	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, domain.ConfigError("Invalid storage account credentials", err)
	}

	client, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, domain.ConfigError("Failed to create blob client", err)
	}

	return &AzureStore{
		client:      client,
		credential:  credential,
		accountName: accountName,
	}, nil
}

// EnsureContainer creates the container when it does not exist yet.
func (s *AzureStore) EnsureContainer(ctx context.Context, container string) error {
	_, err := s.client.CreateContainer(ctx, container, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return domain.StorageError(fmt.Sprintf("Failed to ensure container %s", container), err)
	}
	return nil
}

// Upload writes data to container/name, overwriting any existing blob.
func (s *AzureStore) Upload(ctx context.Context, container, name string, data []byte) error {
	if _, err := s.client.UploadBuffer(ctx, container, name, data, nil); err != nil {
		return domain.StorageError(fmt.Sprintf("Failed to upload %s", name), err)
	}
	return nil
}

// Download reads the full blob content.
func (s *AzureStore) Download(ctx context.Context, container, name string) ([]byte, error) {
	resp, err := s.client.DownloadStream(ctx, container, name, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return nil, domain.NotFoundError(fmt.Sprintf("Blob %s not found", name), err)
		}
		return nil, domain.StorageError(fmt.Sprintf("Failed to download %s", name), err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.StorageError(fmt.Sprintf("Failed to read %s", name), err)
	}
	return data, nil
}

// Exists reports whether the blob exists.
func (s *AzureStore) Exists(ctx context.Context, container, name string) (bool, error) {
	blobClient := s.client.ServiceClient().NewContainerClient(container).NewBlobClient(name)
	_, err := blobClient.GetProperties(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return false, nil
		}
		return false, domain.StorageError(fmt.Sprintf("Failed to check %s", name), err)
	}
	return true, nil
}

// List returns blob names under the given prefix.
func (s *AzureStore) List(ctx context.Context, container, prefix string) ([]string, error) {
	pager := s.client.NewListBlobsFlatPager(container, &azblob.ListBlobsFlatOptions{
		Prefix: &prefix,
	})

	var names []string
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, domain.StorageError(fmt.Sprintf("Failed to list %s/%s", container, prefix), err)
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name != nil {
				names = append(names, *item.Name)
			}
		}
	}
	return names, nil
}

// SignedURL returns a read-only SAS URL valid for ttl.
func (s *AzureStore) SignedURL(container, name string, ttl time.Duration) (string, error) {
	values := sas.BlobSignatureValues{
		Protocol:      sas.ProtocolHTTPS,
		ExpiryTime:    time.Now().UTC().Add(ttl),
		Permissions:   (&sas.BlobPermissions{Read: true}).String(),
		ContainerName: container,
		BlobName:      name,
	}

	qp, err := values.SignWithSharedKey(s.credential)
	if err != nil {
		return "", domain.StorageError(fmt.Sprintf("Failed to sign URL for %s", name), err)
	}

	return fmt.Sprintf("https://%s.blob.core.windows.net/%s/%s?%s",
		s.accountName, container, name, qp.Encode()), nil
}

// parseConnectionString extracts the account name and key.
func parseConnectionString(connectionString string) (name, key string, err error) {
	for _, part := range strings.Split(connectionString, ";") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "AccountName":
			name = kv[1]
		case "AccountKey":
			key = kv[1]
		}
	}
	if name == "" || key == "" {
		return "", "", domain.ConfigError("Connection string missing AccountName or AccountKey", nil)
	}
	return name, key, nil
}

var _ BlobStore = (*AzureStore)(nil)
