package badgerfs

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/corevfs/corevfs/pkg/vfs"
)

// ============================================================================
// Database Key Namespace Design
// ============================================================================
//
// BadgerDB is a key-value store, so each data type lives under its own key
// prefix. Volumes are identified by UUID v4 so that keys stay stable even if
// a device id is reused for a different volume later.
//
// Data Type        Prefix   Key Format                 Value Type
// ====================================================================
// Volume Record    "v:"     v:<deviceID>               volumeRecord (JSON)
// Inode Record     "i:"     i:<volUUID>:<no>           inodeRecord (JSON)
// Child Entry      "c:"     c:<volUUID>:<no>:<name>    child no (8-byte BE)
// File Contents    "d:"     d:<volUUID>:<no>           raw bytes

const (
	prefixVolume = "v:"
	prefixInode  = "i:"
	prefixChild  = "c:"
	prefixData   = "d:"
)

func keyVolume(dev vfs.DeviceID) []byte {
	return fmt.Appendf(nil, "%s%d", prefixVolume, dev)
}

func keyInode(vol uuid.UUID, no uint64) []byte {
	return fmt.Appendf(nil, "%s%s:%d", prefixInode, vol, no)
}

func keyChild(vol uuid.UUID, dir uint64, name string) []byte {
	return fmt.Appendf(nil, "%s%s:%d:%s", prefixChild, vol, dir, name)
}

func keyData(vol uuid.UUID, no uint64) []byte {
	return fmt.Appendf(nil, "%s%s:%d", prefixData, vol, no)
}

// ============================================================================
// Stored Records
// ============================================================================

// volumeRecord is the per-device root record.
type volumeRecord struct {
	ID     uuid.UUID `json:"id"`
	NextNo uint64    `json:"next_no"`
	RootNo uint64    `json:"root_no"`
}

// inodeRecord is the on-disk form of a vnode's metadata.
type inodeRecord struct {
	No   uint64       `json:"no"`
	Type vfs.FileType `json:"type"`
	Mode uint32       `json:"mode"`
	Size uint64       `json:"size"`
	Dev  vfs.DeviceID `json:"dev"`
}

// ============================================================================
// JSON Encoding/Decoding
// ============================================================================

func encodeVolumeRecord(rec *volumeRecord) ([]byte, error) {
	bytes, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode volume record: %w", err)
	}
	return bytes, nil
}

func decodeVolumeRecord(data []byte) (*volumeRecord, error) {
	var rec volumeRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode volume record: %w", err)
	}
	return &rec, nil
}

func encodeInodeRecord(rec *inodeRecord) ([]byte, error) {
	bytes, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode inode record: %w", err)
	}
	return bytes, nil
}

func decodeInodeRecord(data []byte) (*inodeRecord, error) {
	var rec inodeRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode inode record: %w", err)
	}
	return &rec, nil
}

func encodeChildNo(no uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, no)
	return buf
}

func decodeChildNo(data []byte) (uint64, error) {
	if len(data) != 8 {
		return 0, fmt.Errorf("invalid child entry length %d", len(data))
	}
	return binary.BigEndian.Uint64(data), nil
}
