package youtube

import (
	"fmt"
	"slices"
)

// License filters and labels for search results.
const (
	LicenseCreativeCommon = "creativeCommon"
	LicenseYouTube        = "youtube"
)

var licenseLabels = map[string]string{
	LicenseCreativeCommon: "Creative Commons",
	LicenseYouTube:        "Standard YouTube License",
}

// LicenseLabel returns the display name of a license type. Unknown types are
// returned unchanged.
func LicenseLabel(license string) string {
	if label, ok := licenseLabels[license]; ok {
		return label
	}
	return license
}

// Licenses returns the accepted license filter values, sorted.
func Licenses() []string {
	out := make([]string, 0, len(licenseLabels))
	for k := range licenseLabels {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// ValidateLicense accepts "" (no filter) or one of Licenses().
func ValidateLicense(license string) error {
	if license == "" {
		return nil
	}
	if _, ok := licenseLabels[license]; !ok {
		return fmt.Errorf("%w: %q (expected %s or %s)",
			ErrInvalidLicense, license, LicenseCreativeCommon, LicenseYouTube)
	}
	return nil
}
