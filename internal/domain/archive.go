package domain

import "time"

// Archive is one published PMTiles file found in the output directory.
type Archive struct {
	Key        string    `json:"key"`
	Region     string    `json:"region,omitempty"`
	Stage      string    `json:"stage,omitempty"`
	Overlay    bool      `json:"overlay,omitempty"`
	Bytes      int64     `json:"bytes"`
	Size       string    `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
}

// ArchiveInventory is the cached listing of the output directory.
type ArchiveInventory struct {
	Archives    []Archive `json:"archives"`
	TotalBytes  int64     `json:"total_bytes"`
	TotalSize   string    `json:"total_size"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Keys returns the archive keys in listing order.
func (inv *ArchiveInventory) Keys() []string {
	keys := make([]string, 0, len(inv.Archives))
	for _, a := range inv.Archives {
		keys = append(keys, a.Key)
	}
	return keys
}
