package domain

import (
	"strconv"
	"time"
)

// Attribute names written onto issued assets.
const (
	AttrTenantID        = "Tenant ID"
	AttrCollectionType  = "Collection Type"
	AttrStudentName     = "Student Name"
	AttrCourse          = "Course"
	AttrCompletionDate  = "Completion Date"
	AttrCertificateType = "Certificate Type"
	AttrGrade           = "Grade"
)

// Attribute is a key/value trait attached to an asset.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// CertificateMintRequest describes a certificate to issue. It is consumed
// once and never stored by the ledger.
type CertificateMintRequest struct {
	Name           string
	URI            string
	StudentName    string
	CourseName     string
	CompletionDate string
	Grade          *string
}

// Validate checks that every required field is present.
func (r CertificateMintRequest) Validate() error {
	if err := validateText("name", r.Name, MaxCollectionNameLen); err != nil {
		return err
	}
	if err := validateText("uri", r.URI, MaxCollectionURILen); err != nil {
		return err
	}
	if r.StudentName == "" {
		return &ValidationError{Field: "student_name", Reason: "must not be empty"}
	}
	if r.CourseName == "" {
		return &ValidationError{Field: "course_name", Reason: "must not be empty"}
	}
	if r.CompletionDate == "" {
		return &ValidationError{Field: "completion_date", Reason: "must not be empty"}
	}
	return nil
}

// Attributes builds the trait list for the certificate issued by tenant.
func (r CertificateMintRequest) Attributes(tenant TenantID) []Attribute {
	attrs := []Attribute{
		{Key: AttrStudentName, Value: r.StudentName},
		{Key: AttrCourse, Value: r.CourseName},
		{Key: AttrCompletionDate, Value: r.CompletionDate},
		{Key: AttrTenantID, Value: strconv.FormatUint(uint64(tenant), 10)},
		{Key: AttrCertificateType, Value: CollectionType},
	}
	if r.Grade != nil && *r.Grade != "" {
		attrs = append(attrs, Attribute{Key: AttrGrade, Value: *r.Grade})
	}
	return attrs
}

// CollectionAttributes returns the traits of a collection created by tenant.
func CollectionAttributes(tenant TenantID) []Attribute {
	return []Attribute{
		{Key: AttrTenantID, Value: strconv.FormatUint(uint64(tenant), 10)},
		{Key: AttrCollectionType, Value: CollectionType},
	}
}

// AssetKind distinguishes collections from the certificates inside them.
type AssetKind string

const (
	AssetCollection  AssetKind = "collection"
	AssetCertificate AssetKind = "certificate"
)

// AssetRequest asks the issuance service to create a record. Address is
// optional; when empty the service assigns one.
type AssetRequest struct {
	Address         Address
	Kind            AssetKind
	Owner           Address
	Authority       Address
	UpdateAuthority Address
	Collection      Address
	Name            string
	URI             string
	Attributes      []Attribute
	Immutable       bool
}

// Asset is an issued record as reported by the issuance service.
type Asset struct {
	Address         Address
	Kind            AssetKind
	Owner           Address
	UpdateAuthority Address
	Collection      Address
	Name            string
	URI             string
	Attributes      []Attribute
	Immutable       bool
	CreatedAt       time.Time
}
