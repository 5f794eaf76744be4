package load

import (
	"fmt"
	"os"

	"github.com/bytedance/sonic"

	"github.com/ougirez/covtrack/internal/pkg/constants"
)

// WriteReport writes summary to path as indented JSON.
func WriteReport(path string, summary *Summary) error {
	data, err := sonic.ConfigStd.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("sonic.MarshalIndent: %w", err)
	}

	if err = os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("%w: write report '%s': %w", constants.ErrIO, path, err)
	}
	return nil
}
