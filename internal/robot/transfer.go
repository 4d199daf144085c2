package robot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shaiso/b24robots/internal/bitrix"
	"github.com/shaiso/b24robots/internal/domain"
	"github.com/shaiso/b24robots/internal/telemetry"
)

// diskFile — ответ disk.file.get.
type diskFile struct {
	ID          flexString `json:"ID"`
	Name        string     `json:"NAME"`
	DownloadURL string     `json:"DOWNLOAD_URL"`
}

// uploadTarget — ответ disk.folder.uploadfile без файла.
type uploadTarget struct {
	UploadURL string `json:"uploadUrl"`
	Field     string `json:"field"`
}

// uploadedFile — ответ на multipart загрузку.
type uploadedFile struct {
	ID   domain.FileID `json:"ID"`
	Name string        `json:"NAME"`
}

// Transfer скачивает файлы портала и загружает их в папки диска.
type Transfer struct {
	api    API
	logger *slog.Logger
}

// NewTransfer создаёт Transfer.
func NewTransfer(api API, logger *slog.Logger) *Transfer {
	return &Transfer{api: api, logger: logger}
}

// Download скачивает файл по идентификатору.
//
// Возвращает ErrFileNotFound, если портал не выдал ссылку на скачивание.
func (t *Transfer) Download(ctx context.Context, id domain.FileID) (*domain.FileContent, error) {
	resp, err := t.api.Call(ctx, "disk.file.get", map[string]any{"id": id.String()})
	if err != nil {
		if bitrix.IsRemote(err) {
			return nil, fmt.Errorf("%w: %s: %w", ErrFileNotFound, id, err)
		}
		return nil, fmt.Errorf("get file %s: %w", id, err)
	}

	var file diskFile
	if !resp.HasResult() || resp.Decode(&file) != nil || file.DownloadURL == "" {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, id)
	}

	data, err := t.api.Fetch(ctx, file.DownloadURL)
	if err != nil {
		return nil, fmt.Errorf("download file %s: %w", id, err)
	}
	telemetry.ObserveFileTransfer(telemetry.DirectionDownload)

	name := file.Name
	if name == "" {
		name = "file_" + id.String()
	}

	t.logger.Debug("file downloaded", "file_id", id, "name", name, "size", len(data))

	return &domain.FileContent{ID: id, Name: name, Data: data}, nil
}

// UploadToFolder загружает содержимое в папку диска и возвращает ID нового файла.
//
// Возвращает ErrUploadRejected, если портал не выдал адрес загрузки или
// в ответе на загрузку нет ID.
func (t *Transfer) UploadToFolder(ctx context.Context, folderID, name string, data []byte) (domain.FileID, error) {
	resp, err := t.api.Call(ctx, "disk.folder.uploadfile", map[string]any{
		"id":                 folderID,
		"generateUniqueName": true,
	})
	if err != nil {
		return "", fmt.Errorf("request upload url: %w", err)
	}

	var target uploadTarget
	if !resp.HasResult() || resp.Decode(&target) != nil || target.UploadURL == "" {
		return "", fmt.Errorf("%w: no upload url for folder %s", ErrUploadRejected, folderID)
	}

	resp, err = t.api.Upload(ctx, target.UploadURL, target.Field, name, data)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}

	var uploaded uploadedFile
	if !resp.HasResult() || resp.Decode(&uploaded) != nil || uploaded.ID == "" {
		return "", fmt.Errorf("%w: %s", ErrUploadRejected, name)
	}
	telemetry.ObserveFileTransfer(telemetry.DirectionUpload)

	t.logger.Debug("file uploaded", "folder_id", folderID, "name", name, "file_id", uploaded.ID)

	return uploaded.ID, nil
}
