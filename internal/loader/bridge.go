package loader

import (
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	iamsvc "github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/iam/types"

	"github.com/kavisec/iamscan/internal/models"
)

// FromAuthorizationDetails converts one GetAccountAuthorizationDetails
// page into the record model. Callers that already hold SDK values can
// scan them without a round-trip through a JSON dump. Paginated
// callers should merge pages before converting or convert page by page
// and append the sections.
func FromAuthorizationDetails(out *iamsvc.GetAccountAuthorizationDetailsOutput) *models.AuthorizationDetails {
	details := &models.AuthorizationDetails{}
	if out == nil {
		return details
	}

	for _, user := range out.UserDetailList {
		details.UserDetailList = append(details.UserDetailList, convertUser(user))
	}
	for _, group := range out.GroupDetailList {
		details.GroupDetailList = append(details.GroupDetailList, convertGroup(group))
	}
	for _, role := range out.RoleDetailList {
		details.RoleDetailList = append(details.RoleDetailList, convertRole(role))
	}
	for _, policy := range out.Policies {
		details.Policies = append(details.Policies, convertPolicy(policy))
	}
	return details
}

func convertPolicy(detail types.ManagedPolicyDetail) models.PolicyRecord {
	return models.PolicyRecord{
		PolicyName:                    aws.ToString(detail.PolicyName),
		PolicyID:                      aws.ToString(detail.PolicyId),
		Arn:                           aws.ToString(detail.Arn),
		Path:                          aws.ToString(detail.Path),
		DefaultVersionID:              detail.DefaultVersionId,
		AttachmentCount:               detail.AttachmentCount,
		PermissionsBoundaryUsageCount: detail.PermissionsBoundaryUsageCount,
		IsAttachable:                  aws.Bool(detail.IsAttachable),
		CreateDate:                    detail.CreateDate,
		UpdateDate:                    detail.UpdateDate,
		PolicyVersionList:             convertVersions(detail.PolicyVersionList),
	}
}

func convertVersions(versions []types.PolicyVersion) []models.PolicyVersion {
	var converted []models.PolicyVersion
	for _, v := range versions {
		converted = append(converted, models.PolicyVersion{
			Document:         quoteDocument(v.Document),
			VersionID:        v.VersionId,
			IsDefaultVersion: v.IsDefaultVersion,
		})
	}
	return converted
}

// quoteDocument wraps the url-encoded document string the API returns
// as a JSON string token, the same form a raw dump carries. The
// document parser decodes it when the policy is constructed.
func quoteDocument(doc *string) json.RawMessage {
	if doc == nil {
		return nil
	}
	raw, _ := json.Marshal(aws.ToString(doc))
	return raw
}

func convertRole(detail types.RoleDetail) models.RoleRecord {
	return models.RoleRecord{
		RoleName:                aws.ToString(detail.RoleName),
		RoleID:                  aws.ToString(detail.RoleId),
		Arn:                     aws.ToString(detail.Arn),
		Path:                    aws.ToString(detail.Path),
		CreateDate:              detail.CreateDate,
		AttachedManagedPolicies: convertRefs(detail.AttachedManagedPolicies),
	}
}

func convertGroup(detail types.GroupDetail) models.GroupRecord {
	return models.GroupRecord{
		GroupName:               aws.ToString(detail.GroupName),
		GroupID:                 aws.ToString(detail.GroupId),
		Arn:                     aws.ToString(detail.Arn),
		Path:                    aws.ToString(detail.Path),
		CreateDate:              detail.CreateDate,
		AttachedManagedPolicies: convertRefs(detail.AttachedManagedPolicies),
	}
}

func convertUser(detail types.UserDetail) models.UserRecord {
	return models.UserRecord{
		UserName:                aws.ToString(detail.UserName),
		UserID:                  aws.ToString(detail.UserId),
		Arn:                     aws.ToString(detail.Arn),
		Path:                    aws.ToString(detail.Path),
		CreateDate:              detail.CreateDate,
		GroupList:               detail.GroupList,
		AttachedManagedPolicies: convertRefs(detail.AttachedManagedPolicies),
	}
}

func convertRefs(attached []types.AttachedPolicy) []models.AttachedPolicyRef {
	var refs []models.AttachedPolicyRef
	for _, ref := range attached {
		refs = append(refs, models.AttachedPolicyRef{
			PolicyName: aws.ToString(ref.PolicyName),
			PolicyArn:  aws.ToString(ref.PolicyArn),
		})
	}
	return refs
}
