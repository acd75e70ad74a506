package snapshot

import (
	"bytes"
	"fmt"

	xdr "github.com/rasky/go-xdr/xdr2"

	"github.com/vfscore/engine/pkg/bytestore"
)

// pageBlock is one non-zero page's worth of content, tagged with its
// page index so DecodeByteStore can place it back at the right offset.
type pageBlock struct {
	Index uint32
	Data  []byte
}

// storeEnvelope is the self-describing wire shape EncodeByteStore
// produces: page size, logical size, and every allocated (non-zero) page.
// It carries no directory-tree or path information — it snapshots one
// Byte Store, not a tree.
type storeEnvelope struct {
	PageSize uint32
	Size     uint64
	Pages    []pageBlock
}

// EncodeByteStore walks store's defined byte range and XDR-encodes a
// storeEnvelope. All-zero pages are omitted; DecodeByteStore reconstructs
// them as sparse zero-fill on load, matching Store's own semantics.
func EncodeByteStore(store *bytestore.Store) ([]byte, error) {
	pageSize := store.PageSize()
	size := store.Size()

	var content bytes.Buffer
	if size > 0 {
		if _, err := store.TransferTo(0, size, &content); err != nil {
			return nil, fmt.Errorf("snapshot: read store content: %w", err)
		}
	}

	raw := content.Bytes()
	env := storeEnvelope{PageSize: uint32(pageSize), Size: uint64(size)}
	for i := 0; i < len(raw); i += pageSize {
		end := i + pageSize
		if end > len(raw) {
			end = len(raw)
		}
		chunk := raw[i:end]
		if isZero(chunk) {
			continue
		}
		env.Pages = append(env.Pages, pageBlock{
			Index: uint32(i / pageSize),
			Data:  append([]byte(nil), chunk...),
		})
	}

	var out bytes.Buffer
	if _, err := xdr.Marshal(&out, &env); err != nil {
		return nil, fmt.Errorf("snapshot: xdr marshal: %w", err)
	}
	return out.Bytes(), nil
}

// DecodeByteStore reconstructs a brand-new, independent Store from data
// produced by EncodeByteStore. It never aliases any existing storage.
func DecodeByteStore(data []byte, poolBound int) (*bytestore.Store, error) {
	var env storeEnvelope
	if _, err := xdr.Unmarshal(bytes.NewReader(data), &env); err != nil {
		return nil, fmt.Errorf("snapshot: xdr unmarshal: %w", err)
	}

	store := bytestore.New(int(env.PageSize), poolBound)
	for _, block := range env.Pages {
		offset := int64(block.Index) * int64(env.PageSize)
		if _, err := store.WriteAt(offset, block.Data); err != nil {
			return nil, fmt.Errorf("snapshot: restore page %d: %w", block.Index, err)
		}
	}

	// WriteAt only grows size to the last byte actually written. If the
	// tail consisted entirely of omitted (all-zero) pages, pad up to the
	// recorded logical size explicitly.
	if trailing := int64(env.Size) - store.Size(); trailing > 0 {
		if _, err := store.WriteAt(store.Size(), make([]byte, trailing)); err != nil {
			return nil, fmt.Errorf("snapshot: pad trailing zero region: %w", err)
		}
	}
	return store, nil
}

func isZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
