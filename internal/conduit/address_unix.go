//go:build unix

package conduit

import (
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// bindListener creates a filesystem-domain socket under the temp dir with a
// collision-resistant name. The returned address uses the unix:// form the
// external process understands.
func bindListener() (net.Listener, string, error) {
	path := filepath.Join(os.TempDir(), "ffdrive-"+uuid.NewString()+".sock")
	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to listen on %s: %w", path, err)
	}
	return listener, "unix://" + path, nil
}
