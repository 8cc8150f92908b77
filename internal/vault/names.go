package vault

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/anota/internal/apperr"
	"github.com/starford/anota/internal/models"
)

var reservedFolderNames = []string{models.AssetsDir, models.FolderTrash, models.FolderAll}

var unsafeAssetChars = regexp.MustCompile(`[^\p{L}\p{N}._-]+`)

// ValidateFolderName checks that name can be used as a folder directory.
// Reserved names are rejected in any letter case.
func ValidateFolderName(name string) error {
	err := validation.Validate(name,
		validation.Required,
		validation.RuneLength(1, 255),
		validation.By(plainName),
		validation.By(notReserved),
	)
	if err != nil {
		return fmt.Errorf("%w: folder %q: %v", apperr.ErrInvalidName, name, err)
	}
	return nil
}

func plainName(v interface{}) error {
	s, _ := v.(string)
	if s == "." || s == ".." || strings.HasPrefix(s, ".") || strings.ContainsAny(s, `/\`) {
		return errors.New("must be a plain directory name")
	}
	return nil
}

func notReserved(v interface{}) error {
	s, _ := v.(string)
	for _, r := range reservedFolderNames {
		if strings.EqualFold(s, r) {
			return fmt.Errorf("%q is reserved", r)
		}
	}
	return nil
}

// validateID rejects ids that cannot be a file stem.
func validateID(id string) error {
	if err := validation.Validate(id, validation.Required, validation.By(plainName)); err != nil {
		return fmt.Errorf("%w: note id %q: %v", apperr.ErrInvalidName, id, err)
	}
	return nil
}

// assetName returns "<base>_<unix millis><ext>" for originalName.
func assetName(originalName string, now time.Time) string {
	base := originalName
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	stem = strings.Trim(unsafeAssetChars.ReplaceAllString(stem, "-"), "-.")
	if stem == "" {
		stem = "image"
	}
	ext = unsafeAssetChars.ReplaceAllString(ext, "")
	return fmt.Sprintf("%s_%d%s", stem, now.UnixMilli(), strings.ToLower(ext))
}
