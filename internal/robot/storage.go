package robot

import (
	"context"
	"fmt"
	"strings"
)

// storageEntityCommon — тип общего хранилища портала.
const storageEntityCommon = "common"

// diskStorage — элемент disk.storage.getlist / ответ disk.storage.get.
type diskStorage struct {
	ID           flexString `json:"ID"`
	Name         string     `json:"NAME"`
	EntityType   string     `json:"ENTITY_TYPE"`
	RootObjectID flexString `json:"ROOT_OBJECT_ID"`
}

// diskObject — элемент disk.storage.getchildren.
type diskObject struct {
	ID       flexString `json:"ID"`
	ParentID flexString `json:"PARENT_ID"`
}

// DiscoverFolder выбирает папку для перекладки файлов.
//
// Предпочитается общее хранилище, иначе первое доступное. Корневая папка:
// ROOT_OBJECT_ID из списка → disk.storage.get → PARENT_ID первого элемента
// disk.storage.getchildren → ID самого хранилища. Некоторые конфигурации
// портала не отдают ROOT_OBJECT_ID в списке, поэтому цепочка нужна целиком.
func (t *Transfer) DiscoverFolder(ctx context.Context) (string, error) {
	resp, err := t.api.Call(ctx, "disk.storage.getlist", nil)
	if err != nil {
		return "", fmt.Errorf("list storages: %w", err)
	}

	var storages orderedList[diskStorage]
	if resp.HasResult() {
		if err := resp.Decode(&storages); err != nil {
			return "", fmt.Errorf("decode storages: %w", err)
		}
	}
	if len(storages) == 0 {
		return "", ErrNoStorage
	}

	chosen := storages[0]
	for _, s := range storages {
		if strings.EqualFold(s.EntityType, storageEntityCommon) {
			chosen = s
			break
		}
	}

	logger := t.logger.With("storage_id", chosen.ID, "storage_name", chosen.Name)

	if chosen.RootObjectID != "" {
		logger.Debug("storage root folder found", "folder_id", chosen.RootObjectID)
		return string(chosen.RootObjectID), nil
	}

	if root := t.storageRoot(ctx, string(chosen.ID)); root != "" {
		logger.Debug("storage root folder found via disk.storage.get", "folder_id", root)
		return root, nil
	}

	if parent := t.childrenParent(ctx, string(chosen.ID)); parent != "" {
		logger.Debug("storage root folder found via children", "folder_id", parent)
		return parent, nil
	}

	logger.Warn("storage root folder unknown, using storage id")
	return string(chosen.ID), nil
}

// storageRoot запрашивает ROOT_OBJECT_ID через disk.storage.get.
func (t *Transfer) storageRoot(ctx context.Context, storageID string) string {
	resp, err := t.api.Call(ctx, "disk.storage.get", map[string]any{"id": storageID})
	if err != nil {
		t.logger.Debug("disk.storage.get failed", "storage_id", storageID, "error", err)
		return ""
	}

	var s diskStorage
	if !resp.HasResult() || resp.Decode(&s) != nil {
		return ""
	}
	return string(s.RootObjectID)
}

// childrenParent берёт PARENT_ID первого элемента корня хранилища.
func (t *Transfer) childrenParent(ctx context.Context, storageID string) string {
	resp, err := t.api.Call(ctx, "disk.storage.getchildren", map[string]any{"id": storageID})
	if err != nil {
		t.logger.Debug("disk.storage.getchildren failed", "storage_id", storageID, "error", err)
		return ""
	}

	var children orderedList[diskObject]
	if !resp.HasResult() || resp.Decode(&children) != nil || len(children) == 0 {
		return ""
	}
	return string(children[0].ParentID)
}
