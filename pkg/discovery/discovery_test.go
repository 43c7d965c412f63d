package discovery

import (
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/enbility/zeroconf/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModeFor(t *testing.T) {
	if got := ModeFor(false); got != ModeNormal {
		t.Errorf("ModeFor(false) = %q, want %q", got, ModeNormal)
	}
	if got := ModeFor(true); got != ModeFallback {
		t.Errorf("ModeFor(true) = %q, want %q", got, ModeFallback)
	}
	if Mode("other").Valid() {
		t.Error("Mode(other).Valid() = true, want false")
	}
}

func TestEncodeServiceTXT(t *testing.T) {
	txt := EncodeServiceTXT(&ServiceInfo{Mode: ModeFallback})

	assert.Equal(t, "fallback", txt[TXTKeyMode])
	assert.Equal(t, ProtocolVersion, txt[TXTKeyVersion])
	assert.Equal(t, []string{"mode=fallback", "ver=1"}, TXTRecordsToStrings(txt))
}

func TestDecodeServiceTXT(t *testing.T) {
	tests := []struct {
		name    string
		txt     TXTRecordMap
		want    *ServiceInfo
		wantErr error
	}{
		{
			name: "normal",
			txt:  TXTRecordMap{"mode": "normal", "ver": "1"},
			want: &ServiceInfo{Mode: ModeNormal, Version: "1"},
		},
		{
			name: "fallback with extra keys",
			txt:  TXTRecordMap{"mode": "fallback", "ver": "2", "x": "y"},
			want: &ServiceInfo{Mode: ModeFallback, Version: "2"},
		},
		{
			name:    "missing mode",
			txt:     TXTRecordMap{"ver": "1"},
			wantErr: ErrMissingRequired,
		},
		{
			name:    "unknown mode",
			txt:     TXTRecordMap{"mode": "degraded", "ver": "1"},
			wantErr: ErrInvalidTXTRecord,
		},
		{
			name:    "missing version",
			txt:     TXTRecordMap{"mode": "normal"},
			wantErr: ErrMissingRequired,
		},
		{
			name:    "empty version",
			txt:     TXTRecordMap{"mode": "normal", "ver": ""},
			wantErr: ErrInvalidTXTRecord,
		},
		{
			name:    "malformed version",
			txt:     TXTRecordMap{"mode": "normal", "ver": "one"},
			wantErr: ErrInvalidTXTRecord,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeServiceTXT(tt.txt)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("DecodeServiceTXT() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStringsToTXTRecords(t *testing.T) {
	txt := StringsToTXTRecords([]string{"mode=normal", "ver=1", "flag", "", "k=a=b"})

	assert.Equal(t, TXTRecordMap{
		"mode": "normal",
		"ver":  "1",
		"flag": "",
		"k":    "a=b",
	}, txt)
}

func TestValidateInstanceName(t *testing.T) {
	if err := ValidateInstanceName("uxr-cockpit"); err != nil {
		t.Errorf("ValidateInstanceName(valid) = %v, want nil", err)
	}
	if err := ValidateInstanceName(""); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("ValidateInstanceName(\"\") = %v, want %v", err, ErrInvalidConfig)
	}
	long := strings.Repeat("a", MaxInstanceNameLen+1)
	if err := ValidateInstanceName(long); !errors.Is(err, ErrInstanceNameTooLong) {
		t.Errorf("ValidateInstanceName(long) = %v, want %v", err, ErrInstanceNameTooLong)
	}
}

func TestAdvertiserConfigValidate(t *testing.T) {
	cfg := AdvertiserConfig{InstanceName: "uxr"}
	require.NoError(t, cfg.Validate())

	assert.Equal(t, uint16(DefaultPort), cfg.Port)
	assert.Equal(t, ModeNormal, cfg.Mode)
	assert.Equal(t, DefaultTTL, cfg.TTL)

	bad := AdvertiserConfig{InstanceName: "uxr", Mode: "other"}
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfig)

	negative := AdvertiserConfig{InstanceName: "uxr", TTL: -time.Second}
	assert.ErrorIs(t, negative.Validate(), ErrInvalidConfig)
}

func TestAdvertiserUpdateModeBeforeStart(t *testing.T) {
	a, err := NewAdvertiser(DefaultAdvertiserConfig())
	require.NoError(t, err)

	assert.False(t, a.IsRunning())
	assert.Equal(t, ModeNormal, a.Mode())

	require.NoError(t, a.UpdateMode(ModeFallback))
	assert.Equal(t, ModeFallback, a.Mode())
	assert.Equal(t, "fallback", a.txtLocked()[TXTKeyMode])

	assert.ErrorIs(t, a.UpdateMode("other"), ErrInvalidConfig)

	// Stop without Start is a no-op.
	a.Stop()
	assert.False(t, a.IsRunning())
}

func TestNewAdvertiserRejectsInvalidConfig(t *testing.T) {
	_, err := NewAdvertiser(AdvertiserConfig{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func newEntry(instance string) *zeroconf.ServiceEntry {
	entry := &zeroconf.ServiceEntry{}
	entry.Instance = instance
	entry.Service = ServiceType
	entry.Domain = Domain
	return entry
}

func TestEntryToService(t *testing.T) {
	entry := newEntry("cockpit")
	entry.HostName = "ivi.local."
	entry.Port = 7420
	entry.Text = []string{"mode=fallback", "ver=1"}
	entry.AddrIPv4 = []net.IP{net.ParseIP("192.168.1.20")}
	entry.AddrIPv6 = []net.IP{net.ParseIP("fe80::1")}

	svc := entryToService(entry)
	require.NotNil(t, svc)

	assert.Equal(t, "cockpit", svc.InstanceName)
	assert.Equal(t, "ivi.local.", svc.Host)
	assert.Equal(t, uint16(7420), svc.Port)
	assert.Equal(t, ModeFallback, svc.Mode)
	assert.Equal(t, []string{"192.168.1.20", "fe80::1"}, svc.Addresses)
	assert.Equal(t, "192.168.1.20:7420", svc.DialAddress())

	entry.Text = []string{"ver=1"}
	assert.Nil(t, entryToService(entry))
}

func TestDialAddressHostFallback(t *testing.T) {
	svc := &Service{Host: "ivi.local.", Port: 7420}
	assert.Equal(t, "ivi.local.:7420", svc.DialAddress())

	svc = &Service{Addresses: []string{"fe80::1"}, Port: 7420}
	assert.Equal(t, "[fe80::1]:7420", svc.DialAddress())
}

func TestMergeAndRemoveAddresses(t *testing.T) {
	addrs := mergeAddresses([]string{"10.0.0.1"}, []string{"10.0.0.1", "10.0.0.2"})
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, addrs)

	entry := newEntry("cockpit")
	entry.AddrIPv4 = []net.IP{net.ParseIP("10.0.0.1")}

	assert.Equal(t, []string{"10.0.0.2"}, removeAddresses(addrs, entry))
}

func TestServiceCompatible(t *testing.T) {
	tests := map[string]bool{
		ProtocolVersion: true,
		"1.3":           true,
		"2":             false,
		"":              false,
	}
	for ver, want := range tests {
		svc := &Service{Version: ver}
		if got := svc.Compatible(); got != want {
			t.Errorf("Service{Version: %q}.Compatible() = %v, want %v", ver, got, want)
		}
	}
}
