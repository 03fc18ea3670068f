package models

import (
	"encoding/json"
	"strings"
	"time"
)

// PolicyRecord is one managed policy entry from the Policies section of
// an account authorization details dump. Optional metadata fields are
// pointers and stay nil when the dump omits them; they are never
// inferred.
type PolicyRecord struct {
	PolicyName                    string          `json:"PolicyName"`
	PolicyID                      string          `json:"PolicyId"`
	Arn                           string          `json:"Arn"`
	Path                          string          `json:"Path"`
	DefaultVersionID              *string         `json:"DefaultVersionId,omitempty"`
	AttachmentCount               *int32          `json:"AttachmentCount,omitempty"`
	PermissionsBoundaryUsageCount *int32          `json:"PermissionsBoundaryUsageCount,omitempty"`
	IsAttachable                  *bool           `json:"IsAttachable,omitempty"`
	CreateDate                    *time.Time      `json:"CreateDate,omitempty"`
	UpdateDate                    *time.Time      `json:"UpdateDate,omitempty"`
	PolicyVersionList             []PolicyVersion `json:"PolicyVersionList,omitempty"`
}

// PolicyVersion is one entry of a policy's version list. Document holds
// the policy body exactly as supplied: either a JSON object or a
// URL-encoded JSON string, both of which the document parser accepts.
type PolicyVersion struct {
	Document         json.RawMessage `json:"Document,omitempty"`
	VersionID        *string         `json:"VersionId,omitempty"`
	IsDefaultVersion bool            `json:"IsDefaultVersion"`
}

// AttachedPolicyRef names a managed policy attached to a principal.
type AttachedPolicyRef struct {
	PolicyName string `json:"PolicyName"`
	PolicyArn  string `json:"PolicyArn"`
}

// RoleRecord is one entry of the RoleDetailList section.
type RoleRecord struct {
	RoleName                string              `json:"RoleName"`
	RoleID                  string              `json:"RoleId"`
	Arn                     string              `json:"Arn"`
	Path                    string              `json:"Path"`
	CreateDate              *time.Time          `json:"CreateDate,omitempty"`
	AttachedManagedPolicies []AttachedPolicyRef `json:"AttachedManagedPolicies,omitempty"`
}

// GroupRecord is one entry of the GroupDetailList section.
type GroupRecord struct {
	GroupName               string              `json:"GroupName"`
	GroupID                 string              `json:"GroupId"`
	Arn                     string              `json:"Arn"`
	Path                    string              `json:"Path"`
	CreateDate              *time.Time          `json:"CreateDate,omitempty"`
	AttachedManagedPolicies []AttachedPolicyRef `json:"AttachedManagedPolicies,omitempty"`
}

// UserRecord is one entry of the UserDetailList section. GroupList
// names the groups the user belongs to; group-attached policies are
// reported against the group, not the user.
type UserRecord struct {
	UserName                string              `json:"UserName"`
	UserID                  string              `json:"UserId"`
	Arn                     string              `json:"Arn"`
	Path                    string              `json:"Path"`
	CreateDate              *time.Time          `json:"CreateDate,omitempty"`
	GroupList               []string            `json:"GroupList,omitempty"`
	AttachedManagedPolicies []AttachedPolicyRef `json:"AttachedManagedPolicies,omitempty"`
}

// AuthorizationDetails mirrors the top-level sections of an
// `aws iam get-account-authorization-details` dump.
type AuthorizationDetails struct {
	UserDetailList  []UserRecord   `json:"UserDetailList"`
	GroupDetailList []GroupRecord  `json:"GroupDetailList"`
	RoleDetailList  []RoleRecord   `json:"RoleDetailList"`
	Policies        []PolicyRecord `json:"Policies"`
}

// PolicyOrigin classifies who maintains a managed policy. The origin
// decides which attachment-reference map a report consults.
type PolicyOrigin string

const (
	OriginAWS      PolicyOrigin = "AWS"
	OriginCustomer PolicyOrigin = "Customer"
)

// awsManagedArnPrefix is the arn prefix shared by every AWS-managed
// policy.
const awsManagedArnPrefix = "arn:aws:iam::aws:policy/"

// OriginOf classifies a policy arn. Anything outside the AWS-managed
// prefix counts as customer-managed.
func OriginOf(arn string) PolicyOrigin {
	if strings.HasPrefix(arn, awsManagedArnPrefix) {
		return OriginAWS
	}
	return OriginCustomer
}
