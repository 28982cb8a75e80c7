package vault

import (
	"context"
	"strconv"
)

// Usage is the disk usage of the filesystem holding the storage root, in
// KiB, formatted the way df -k prints it.
type Usage struct {
	Used      string `json:"used"`
	Available string `json:"available"`
	Total     string `json:"total"`
}

// Usage reports disk usage for the storage root.
func (v *Vault) Usage(ctx context.Context) (Usage, error) {
	total, used, available, err := volumeStats(v.root)
	if err != nil {
		v.logger.Error(ctx, "disk usage", "error", err)
		return Usage{}, err
	}
	return Usage{
		Used:      kib(used),
		Available: kib(available),
		Total:     kib(total),
	}, nil
}

func kib(bytes uint64) string {
	return strconv.FormatUint(bytes/1024, 10)
}
