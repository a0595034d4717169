package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WhitehatD/Student-Identity-Consent/consent"
	"github.com/WhitehatD/Student-Identity-Consent/storage/model"
)

func TestParseDataTypeArgs(t *testing.T) {
	all, err := parseDataTypeArgs(nil)
	require.NoError(t, err)
	assert.Equal(t, consent.AllDataTypes(), all)

	dts, err := parseDataTypeArgs([]string{"2", "0"})
	require.NoError(t, err)
	assert.Equal(t, []consent.DataType{consent.SocialProfile, consent.BasicProfile}, dts)

	for _, bad := range []string{"3", "-1", "social"} {
		_, err = parseDataTypeArgs([]string{bad})
		assert.ErrorIs(t, err, consent.ErrInvalidDataType, bad)
	}
}

func TestPrintChecks(t *testing.T) {
	var buf bytes.Buffer
	err := printChecks(
		&buf, consent.AllDataTypes(), map[consent.DataType]bool{
			consent.BasicProfile: true,
		},
	)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, []string{"DATA", "TYPE", "NAME", "GRANTED"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"0", "BasicProfile", "yes"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"1", "AcademicRecord", "no"}, strings.Fields(lines[2]))
	assert.Equal(t, []string{"2", "SocialProfile", "no"}, strings.Fields(lines[3]))
}

func TestPrintHistory(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printHistory(&buf, nil))
	assert.Equal(t, "No consents found\n", buf.String())

	buf.Reset()
	err := printHistory(
		&buf, []consent.LogEntry{
			{
				Requester:   "0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
				DataType:    consent.AcademicRecord,
				ExpiresAt:   "1999999999",
				Status:      consent.StatusRevoked,
				BlockNumber: 12,
			},
		},
	)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(
		t,
		[]string{"0x70997970C51812dc3A010C7d01b50e0d17dc79C8", "AcademicRecord", "1999999999", "revoked", "12"},
		strings.Fields(lines[1]),
	)
}

func TestPrintRecord(t *testing.T) {
	record := &consent.Record{
		Owner:     "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
		Requester: "0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
		DataType:  consent.SocialProfile,
		ExpiresAt: "1893456000",
		Exists:    true,
		Active:    true,
	}

	var buf bytes.Buffer
	require.NoError(t, printRecord(&buf, record, time.Unix(1893455999, 0)))
	out := buf.String()
	assert.Contains(t, out, "2 (SocialProfile)")
	assert.Contains(t, out, "1893456000 (2030-01-01T00:00:00Z)")
	assert.Regexp(t, `Exists:\s+yes`, out)
	assert.Regexp(t, `Active:\s+yes`, out)
	assert.Regexp(t, `Valid now:\s+yes`, out)

	buf.Reset()
	require.NoError(t, printRecord(&buf, record, time.Unix(1893456000, 0)))
	assert.Regexp(t, `Valid now:\s+no`, buf.String(), "expired at the expiry second")

	revoked := *record
	revoked.Active = false
	buf.Reset()
	require.NoError(t, printRecord(&buf, &revoked, time.Unix(0, 0)))
	assert.Regexp(t, `Active:\s+no`, buf.String())
	assert.Regexp(t, `Valid now:\s+no`, buf.String())
}

func TestPrintWallet(t *testing.T) {
	var buf bytes.Buffer
	err := printWallet(
		&buf, &model.Wallet{
			WalletAddress: "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
			CID:           "Qm123",
			DisplayName:   "Alice",
			CreatedAt:     time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		},
	)
	require.NoError(t, err)
	out := buf.String()
	assert.Regexp(t, `CID:\s+Qm123`, out)
	assert.Contains(t, out, "2025-01-02T03:04:05Z")
}
