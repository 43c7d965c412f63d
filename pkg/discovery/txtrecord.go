package discovery

import (
	"fmt"
	"sort"
	"strings"

	"github.com/uxr-project/uxr-go/pkg/version"
)

// TXTRecordMap holds TXT record key/value pairs.
type TXTRecordMap map[string]string

// EncodeServiceTXT builds the TXT records for an advertisement.
// An empty version is advertised as ProtocolVersion.
func EncodeServiceTXT(info *ServiceInfo) TXTRecordMap {
	version := info.Version
	if version == "" {
		version = ProtocolVersion
	}
	return TXTRecordMap{
		TXTKeyMode:    string(info.Mode),
		TXTKeyVersion: version,
	}
}

// DecodeServiceTXT reads mode and version from TXT records.
func DecodeServiceTXT(txt TXTRecordMap) (*ServiceInfo, error) {
	info := &ServiceInfo{}

	mode, ok := txt[TXTKeyMode]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyMode)
	}
	info.Mode = Mode(mode)
	if !info.Mode.Valid() {
		return nil, fmt.Errorf("%w: unknown mode %q", ErrInvalidTXTRecord, mode)
	}

	info.Version, ok = txt[TXTKeyVersion]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyVersion)
	}
	if _, err := version.Parse(info.Version); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTXTRecord, err)
	}

	return info, nil
}

// TXTRecordsToStrings converts a TXTRecordMap to a slice of "key=value" strings,
// sorted by key.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(result)
	return result
}

// StringsToTXTRecords parses a slice of "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		parts := strings.SplitN(s, "=", 2)
		if len(parts) == 2 {
			txt[parts[0]] = parts[1]
		} else if len(parts) == 1 && parts[0] != "" {
			// Key without value (boolean flag)
			txt[parts[0]] = ""
		}
	}
	return txt
}

// ValidateInstanceName checks if an instance name is valid for mDNS.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty instance name", ErrInvalidConfig)
	}
	if len(name) > MaxInstanceNameLen {
		return ErrInstanceNameTooLong
	}
	return nil
}
