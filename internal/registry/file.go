package registry

import (
	"context"
	"errors"
	"fmt"
	"path"

	"webshare/room-api/internal/model"
	"webshare/room-api/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Files owns the file table and delegates byte storage to the blob store.
type Files struct {
	db    *gorm.DB
	store storage.Store
}

func NewFiles(db *gorm.DB, store storage.Store) *Files {
	return &Files{db: db, store: store}
}

// NewStoredName allocates a file id and derives the collision-resistant name
// the blob is stored under. The original extension is preserved so downloads
// keep working by name. Callers write the blob first, then Create the row.
func NewStoredName(originalName string) (id, storedName string) {
	id = uuid.NewString()
	return id, id + "_" + path.Base(originalName)
}

type CreateFileOpts struct {
	ID           string
	RoomID       string
	OriginalName string
	StoredName   string
	StoragePath  string
	FileSize     int64
	MimeType     string
	IsFolder     bool
	FileCount    int
}

// Create writes the file row. The blob must already be in place; the matching
// Rooms.UpdateSize call is the caller's responsibility and is a separate
// step, so a crash in between leaves a row the reconciliation pass repairs.
func (f *Files) Create(ctx context.Context, opts CreateFileOpts) (*model.File, error) {
	id := opts.ID
	storedName := opts.StoredName
	if id == "" || storedName == "" {
		id, storedName = NewStoredName(opts.OriginalName)
	}

	storagePath := opts.StoragePath
	if storagePath == "" {
		storagePath = path.Join("rooms", opts.RoomID, storedName)
	}

	file := &model.File{
		ID:           id,
		RoomID:       opts.RoomID,
		OriginalName: opts.OriginalName,
		StoredName:   storedName,
		StoragePath:  storagePath,
		FileSize:     opts.FileSize,
		MimeType:     opts.MimeType,
		IsFolder:     opts.IsFolder,
		FileCount:    opts.FileCount,
	}

	if err := f.db.WithContext(ctx).Create(file).Error; err != nil {
		return nil, fmt.Errorf("failed to save file record, %w", err)
	}

	return file, nil
}

// FindByID returns the file row or ErrNotFound.
func (f *Files) FindByID(ctx context.Context, id string) (*model.File, error) {
	var file model.File
	err := f.db.WithContext(ctx).Where("id = ?", id).First(&file).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query file %s, %w", id, err)
	}
	return &file, nil
}

// FindByRoom returns the room's files, most recent upload first.
func (f *Files) FindByRoom(ctx context.Context, roomID string) ([]model.File, error) {
	var files []model.File
	err := f.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("upload_time DESC").
		Find(&files).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list files for room %s, %w", roomID, err)
	}
	return files, nil
}

// Delete removes the blob, then the row, and reports whether the row was
// actually removed. The ordering is deliberate: a leftover blob without a row
// is repaired by reconciliation, but a row pointing at a missing blob would
// 404 on download while looking perfectly valid. A blob-removal failure is
// therefore logged and never blocks the row delete.
func (f *Files) Delete(ctx context.Context, file *model.File) (bool, error) {
	if err := f.store.Remove(ctx, file.RoomID, file.StoredName); err != nil {
		zap.L().Warn("Failed to remove blob, removing row anyway",
			zap.String("file", file.ID),
			zap.Error(err))
	}

	res := f.db.WithContext(ctx).Where("id = ?", file.ID).Delete(&model.File{})
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete file record %s, %w", file.ID, res.Error)
	}

	return res.RowsAffected > 0, nil
}

// DeleteAllForRoom deletes every file row of the room through Delete, then
// drops the room's storage directory if nothing is left inside. Calling it
// again right away is a no-op returning 0.
func (f *Files) DeleteAllForRoom(ctx context.Context, roomID string) (int, error) {
	files, err := f.FindByRoom(ctx, roomID)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for i := range files {
		ok, err := f.Delete(ctx, &files[i])
		if err != nil {
			return deleted, err
		}
		if ok {
			deleted++
		}
	}

	f.CleanupRoomDir(ctx, roomID)

	return deleted, nil
}

// CleanupRoomDir removes the room's directory when it holds no blobs. Safe to
// call at any time; a non-empty directory is left alone.
func (f *Files) CleanupRoomDir(ctx context.Context, roomID string) {
	empty, err := f.store.RoomEmpty(ctx, roomID)
	if err != nil {
		zap.L().Warn("Failed to check room directory", zap.String("room", roomID), zap.Error(err))
		return
	}
	if !empty {
		return
	}

	if err := f.store.RemoveRoomDir(ctx, roomID); err != nil {
		zap.L().Warn("Failed to remove room directory", zap.String("room", roomID), zap.Error(err))
	}
}

// RemoveUnreferencedBlobs walks the blob store and deletes every blob no file
// row points at. This is the other half of the crash window: a blob written
// right before Create failed has no row and would otherwise sit on disk
// forever. Room directories left empty by the sweep are removed too.
func (f *Files) RemoveUnreferencedBlobs(ctx context.Context) (int, error) {
	roomIDs, err := f.store.ListRooms(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, roomID := range roomIDs {
		rows, err := f.FindByRoom(ctx, roomID)
		if err != nil {
			return removed, err
		}

		referenced := make(map[string]struct{}, len(rows))
		for i := range rows {
			referenced[rows[i].StoredName] = struct{}{}
		}

		names, err := f.store.List(ctx, roomID)
		if err != nil {
			zap.L().Warn("Failed to list room blobs", zap.String("room", roomID), zap.Error(err))
			continue
		}

		for _, name := range names {
			if _, ok := referenced[name]; ok {
				continue
			}

			if err := f.store.Remove(ctx, roomID, name); err != nil {
				zap.L().Warn("Failed to remove unreferenced blob",
					zap.String("room", roomID),
					zap.String("blob", name),
					zap.Error(err))
				continue
			}

			zap.L().Info("Removed unreferenced blob",
				zap.String("room", roomID),
				zap.String("blob", name))
			removed++
		}

		f.CleanupRoomDir(ctx, roomID)
	}

	return removed, nil
}

// TotalSize recomputes the room's usage from file rows. Used to reconcile
// rooms.current_size after crashes between upload steps.
func (f *Files) TotalSize(ctx context.Context, roomID string) (int64, error) {
	var total int64
	err := f.db.WithContext(ctx).Model(&model.File{}).
		Where("room_id = ?", roomID).
		Select("COALESCE(SUM(file_size), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum file sizes for room %s, %w", roomID, err)
	}
	return total, nil
}

// Orphaned returns file rows whose owning room is missing or inactive. They
// are what's left after a crashed cascade or a room row deleted out-of-band.
func (f *Files) Orphaned(ctx context.Context) ([]model.File, error) {
	var files []model.File
	err := f.db.WithContext(ctx).Model(&model.File{}).
		Joins("LEFT JOIN rooms ON rooms.id = files.room_id AND rooms.is_active = ?", true).
		Where("rooms.id IS NULL").
		Find(&files).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query orphaned files, %w", err)
	}
	return files, nil
}
