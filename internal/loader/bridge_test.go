package loader

import (
	"net/url"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	iamsvc "github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/iam/types"

	"github.com/kavisec/iamscan/internal/document"
	"github.com/kavisec/iamscan/internal/exclusions"
	"github.com/kavisec/iamscan/internal/scan"
)

func TestFromAuthorizationDetails(t *testing.T) {
	created := time.Date(2023, 1, 15, 10, 0, 0, 0, time.UTC)
	encoded := url.QueryEscape(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Action":"s3:GetObject","Resource":"*"}]}`)

	out := &iamsvc.GetAccountAuthorizationDetailsOutput{
		UserDetailList: []types.UserDetail{
			{
				UserName:  aws.String("alice"),
				UserId:    aws.String("AIDA1"),
				Arn:       aws.String("arn:aws:iam::123456789012:user/alice"),
				Path:      aws.String("/"),
				GroupList: []string{"admins"},
				AttachedManagedPolicies: []types.AttachedPolicy{
					{PolicyName: aws.String("custom1"), PolicyArn: aws.String("arn:aws:iam::123456789012:policy/custom1")},
				},
			},
		},
		GroupDetailList: []types.GroupDetail{
			{GroupName: aws.String("admins"), GroupId: aws.String("AGPA1")},
		},
		RoleDetailList: []types.RoleDetail{
			{RoleName: aws.String("deploy"), RoleId: aws.String("AROA1"), CreateDate: aws.Time(created)},
		},
		Policies: []types.ManagedPolicyDetail{
			{
				PolicyName:       aws.String("custom1"),
				PolicyId:         aws.String("ANPA1"),
				Arn:              aws.String("arn:aws:iam::123456789012:policy/custom1"),
				Path:             aws.String("/"),
				DefaultVersionId: aws.String("v1"),
				AttachmentCount:  aws.Int32(1),
				IsAttachable:     true,
				CreateDate:       aws.Time(created),
				PolicyVersionList: []types.PolicyVersion{
					{Document: aws.String(encoded), VersionId: aws.String("v1"), IsDefaultVersion: true},
				},
			},
		},
	}

	details := FromAuthorizationDetails(out)

	if len(details.UserDetailList) != 1 || details.UserDetailList[0].UserID != "AIDA1" {
		t.Errorf("users = %+v", details.UserDetailList)
	}
	if details.UserDetailList[0].GroupList[0] != "admins" {
		t.Error("user group list not carried")
	}
	if len(details.GroupDetailList) != 1 || details.GroupDetailList[0].GroupID != "AGPA1" {
		t.Errorf("groups = %+v", details.GroupDetailList)
	}
	if len(details.RoleDetailList) != 1 || !details.RoleDetailList[0].CreateDate.Equal(created) {
		t.Errorf("roles = %+v", details.RoleDetailList)
	}

	p := details.Policies[0]
	if p.PolicyID != "ANPA1" || p.Arn != "arn:aws:iam::123456789012:policy/custom1" {
		t.Errorf("policy identity = %+v", p)
	}
	if p.IsAttachable == nil || !*p.IsAttachable {
		t.Error("IsAttachable not carried")
	}
	if p.AttachmentCount == nil || *p.AttachmentCount != 1 {
		t.Error("AttachmentCount not carried")
	}
	if refs := details.UserDetailList[0].AttachedManagedPolicies; refs[0].PolicyArn == "" {
		t.Error("attachment refs not carried")
	}

	// The quoted document form must survive policy construction.
	mp, err := scan.NewManagedPolicy(p, exclusions.New(exclusions.Config{}), document.Options{}, nil)
	if err != nil {
		t.Fatalf("converted record does not construct: %v", err)
	}
	if findings := mp.Document().AllowsDataExfiltrationActions(); len(findings) != 1 || findings[0].Type != "s3:GetObject" {
		t.Errorf("document did not round-trip: %v", findings)
	}
}

func TestFromAuthorizationDetails_Nil(t *testing.T) {
	details := FromAuthorizationDetails(nil)
	if details == nil {
		t.Fatal("nil output should convert to an empty dump")
	}
	if len(details.Policies) != 0 {
		t.Errorf("unexpected policies: %+v", details.Policies)
	}
}
