package consent

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// DataType is a category of student data a consent can be given for. The
// values match the DataType enum of the EduConsent contract.
type DataType uint8

// The data types known to the EduConsent contract
const (
	BasicProfile DataType = iota
	AcademicRecord
	SocialProfile
)

// ErrInvalidDataType is returned for data types outside the known range
var ErrInvalidDataType = errors.New(
	"DataType must be 0 (BasicProfile), 1 (AcademicRecord), or 2 (SocialProfile)",
)

// AllDataTypes returns all known data types in enum order
func AllDataTypes() []DataType {
	return []DataType{
		BasicProfile,
		AcademicRecord,
		SocialProfile,
	}
}

// DataTypeInfo describes a DataType for clients
type DataTypeInfo struct {
	ID          DataType `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
}

var dataTypeInfos = map[DataType]DataTypeInfo{
	BasicProfile: {
		ID:          BasicProfile,
		Name:        "BasicProfile",
		Description: "Name, handle, university, enrollment year",
	},
	AcademicRecord: {
		ID:          AcademicRecord,
		Name:        "AcademicRecord",
		Description: "Grades, transcripts, and course performance",
	},
	SocialProfile: {
		ID:          SocialProfile,
		Name:        "SocialProfile",
		Description: "Social connections, posts, and activities",
	},
}

// DataTypeCatalog returns the descriptions of all data types in enum order
func DataTypeCatalog() []DataTypeInfo {
	infos := make([]DataTypeInfo, 0, len(dataTypeInfos))
	for _, dt := range AllDataTypes() {
		infos = append(infos, dataTypeInfos[dt])
	}
	return infos
}

// Valid checks if the DataType is known
func (dt DataType) Valid() bool {
	_, ok := dataTypeInfos[dt]
	return ok
}

// Name returns the enum name of the DataType
func (dt DataType) Name() string {
	if info, ok := dataTypeInfos[dt]; ok {
		return info.Name
	}
	return fmt.Sprintf("DataType(%d)", uint8(dt))
}

// String implements the fmt.Stringer interface
func (dt DataType) String() string {
	return dt.Name()
}

// Description returns a human-readable description of the DataType
func (dt DataType) Description() string {
	return dataTypeInfos[dt].Description
}

// ParseDataType parses the decimal representation of a DataType
func ParseDataType(s string) (DataType, error) {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, errors.WithStack(ErrInvalidDataType)
	}
	return DataTypeFromInt(i)
}

// DataTypeFromInt converts an integer to a DataType
func DataTypeFromInt(i int) (DataType, error) {
	if i < 0 || i > int(SocialProfile) {
		return 0, errors.WithStack(ErrInvalidDataType)
	}
	return DataType(i), nil
}
