package vical

// RenameMap maps a filename derived from a certificate's Common Name to the
// jurisdiction-coded name it is published under.
type RenameMap map[string]string

var defaultRenames = RenameMap{
	"alaska_dmv_iaca.pem":                    "ak_certificate.pem",
	"carswsnpdojmtgov.pem":                   "mt_certificate.pem",
	"colorado_root_certificate.pem":          "co_certificate.pem",
	"fast_enterprises_root.pem":              "md_certificate.pem",
	"georgia_root_certificate_authority.pem": "ga_certificate.pem",
	"httpspartnermdldotndgov.pem":            "nd_certificate.pem",
	"mvmprodca.pem":                          "az_certificate.pem",
	"iaca-utah-usa.pem":                      "ut_certificate.pem",
	"va_mid_iaca.pem":                        "va_certificate.pem",
	"mdot_mva_mdl_root.pem":                  "md_certificate.pem",
}

// DefaultRenameMap returns a copy of the built-in AAMVA jurisdiction table.
func DefaultRenameMap() RenameMap {
	return defaultRenames.Merge(nil)
}

// Merge returns a new map holding m overlaid with overrides. An override
// with an empty target removes the entry.
func (m RenameMap) Merge(overrides map[string]string) RenameMap {
	merged := make(RenameMap, len(m)+len(overrides))
	for k, v := range m {
		merged[k] = v
	}
	for k, v := range overrides {
		if v == "" {
			delete(merged, k)
			continue
		}
		merged[k] = v
	}
	return merged
}

// Apply returns the mapped name, or name itself when it is not mapped.
func (m RenameMap) Apply(name string) string {
	if renamed, ok := m[name]; ok {
		return renamed
	}
	return name
}
