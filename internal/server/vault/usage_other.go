//go:build !(linux || darwin || freebsd)

package vault

import (
	"fmt"

	"github.com/dmitrijs2005/homevault/internal/common"
)

func volumeStats(path string) (total, used, available uint64, err error) {
	return 0, 0, 0, fmt.Errorf("%w: disk usage is not supported on this platform", common.ErrInternal)
}
