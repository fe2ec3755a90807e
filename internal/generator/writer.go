package generator

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vanshika/txflag/internal/dataset"
)

// DatasetFileName is the file written under the output directory.
const DatasetFileName = "transactions_dataset.csv"

// WriteDataset serializes the dataset into transactions_dataset.csv under dir and
// returns the written path.
func WriteDataset(ds Dataset, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	path := filepath.Join(dir, DatasetFileName)
	if err := dataset.WriteFile(path, ds.Transactions); err != nil {
		return "", fmt.Errorf("write dataset: %w", err)
	}
	return path, nil
}
