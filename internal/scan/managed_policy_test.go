package scan

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/kavisec/iamscan/internal/document"
	"github.com/kavisec/iamscan/internal/exclusions"
	"github.com/kavisec/iamscan/internal/models"
)

const (
	escalationBody = `{"Version":"2012-10-17","Statement":[
		{"Effect":"Allow","Action":["iam:CreateAccessKey","s3:GetObject"],"Resource":"*"}
	]}`
	harmlessBody = `{"Version":"2012-10-17","Statement":[
		{"Effect":"Allow","Action":"ec2:DescribeInstances","Resource":"*"}
	]}`
)

func noRules() *exclusions.Exclusions { return exclusions.New(exclusions.Config{}) }

func strPtr(s string) *string { return &s }

// record builds a two-version policy record whose default version
// carries body and whose older version grants something else entirely.
func record(name, id, arnStr, path, body string) models.PolicyRecord {
	return models.PolicyRecord{
		PolicyName:       name,
		PolicyID:         id,
		Arn:              arnStr,
		Path:             path,
		DefaultVersionID: strPtr("v2"),
		PolicyVersionList: []models.PolicyVersion{
			{
				Document:         json.RawMessage(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Action":"glue:UpdateDevEndpoint","Resource":"*"}]}`),
				VersionID:        strPtr("v1"),
				IsDefaultVersion: false,
			},
			{
				Document:         json.RawMessage(body),
				VersionID:        strPtr("v2"),
				IsDefaultVersion: true,
			},
		},
	}
}

func customerRecord(name, id, body string) models.PolicyRecord {
	return record(name, id, "arn:aws:iam::123456789012:policy/"+name, "/", body)
}

func awsRecord(name, id, body string) models.PolicyRecord {
	return record(name, id, "arn:aws:iam::aws:policy/"+name, "/", body)
}

func mustPolicy(t *testing.T, rec models.PolicyRecord, excl exclusions.Matcher, filter models.SeverityFilter) *ManagedPolicy {
	t.Helper()
	p, err := NewManagedPolicy(rec, excl, document.Options{}, filter)
	if err != nil {
		t.Fatalf("NewManagedPolicy(%s): %v", rec.PolicyName, err)
	}
	return p
}

func TestNewManagedPolicy_ResolvesDefaultVersion(t *testing.T) {
	p := mustPolicy(t, customerRecord("custom1", "ANPA1", escalationBody), noRules(), nil)

	// The default version grants iam:CreateAccessKey; the older one
	// grants glue:CreateDevEndpoint. Only the former may surface.
	types := map[string]bool{}
	for _, f := range p.Document().AllowsPrivilegeEscalation() {
		types[f.Type] = true
	}
	if !types["CreateAccessKey"] {
		t.Error("default-version grant should produce the CreateAccessKey method")
	}
	if types["UpdateExistingGlueDevEndpoint"] {
		t.Error("non-default version leaked into the resolved document")
	}
}

func TestNewManagedPolicy_NoDefaultVersion(t *testing.T) {
	rec := customerRecord("broken", "ANPA2", harmlessBody)
	for i := range rec.PolicyVersionList {
		rec.PolicyVersionList[i].IsDefaultVersion = false
	}

	_, err := NewManagedPolicy(rec, noRules(), document.Options{}, nil)
	if err == nil {
		t.Fatal("expected construction to fail without a default version")
	}
	var ndv *NoDefaultVersionError
	if !errors.As(err, &ndv) {
		t.Fatalf("expected NoDefaultVersionError, got %T: %v", err, err)
	}
	if ndv.PolicyName != "broken" {
		t.Errorf("error names policy %q", ndv.PolicyName)
	}
}

func TestNewManagedPolicy_NilMatcher(t *testing.T) {
	_, err := NewManagedPolicy(customerRecord("x", "ANPA3", harmlessBody), nil, document.Options{}, nil)
	if !errors.Is(err, ErrNilExclusions) {
		t.Fatalf("expected ErrNilExclusions, got %v", err)
	}
}

func TestExclusionPrecedence(t *testing.T) {
	cases := []struct {
		name     string
		rec      models.PolicyRecord
		rules    exclusions.Config
		excluded bool
	}{
		{
			name:     "name rule",
			rec:      customerRecord("LegacyAdmin", "ANPA10", harmlessBody),
			rules:    exclusions.Config{Policies: []string{"LegacyAdmin"}},
			excluded: true,
		},
		{
			name:     "id rule",
			rec:      customerRecord("clean", "ANPA11", harmlessBody),
			rules:    exclusions.Config{Policies: []string{"ANPA11"}},
			excluded: true,
		},
		{
			name: "path rule",
			rec: record("clean", "ANPA12",
				"arn:aws:iam::123456789012:policy/legacy/clean", "/legacy/", harmlessBody),
			rules:    exclusions.Config{Policies: []string{"/legacy/*"}},
			excluded: true,
		},
		{
			name: "service-role path with empty rules",
			rec: record("svc", "ANPA13",
				"arn:aws:iam::123456789012:policy/aws-service-role/svc", "/aws-service-role/foo/", harmlessBody),
			rules:    exclusions.Config{},
			excluded: true,
		},
		{
			name: "service-role path without leading slash",
			rec: record("svc2", "ANPA14",
				"arn:aws:iam::123456789012:policy/aws-service-role/svc2", "aws-service-role/bar/", harmlessBody),
			rules:    exclusions.Config{},
			excluded: true,
		},
		{
			name:     "no match",
			rec:      customerRecord("clean", "ANPA15", harmlessBody),
			rules:    exclusions.Config{Policies: []string{"Other*"}},
			excluded: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := mustPolicy(t, tc.rec, exclusions.New(tc.rules), nil)
			if p.IsExcluded() != tc.excluded {
				t.Errorf("IsExcluded() = %v, want %v", p.IsExcluded(), tc.excluded)
			}
		})
	}
}

func TestOriginAndAccountID(t *testing.T) {
	awsPolicy := mustPolicy(t, awsRecord("ReadOnlyAccess", "ANPAAWS", harmlessBody), noRules(), nil)
	if awsPolicy.Origin() != models.OriginAWS {
		t.Errorf("Origin() = %v, want AWS", awsPolicy.Origin())
	}
	account, err := awsPolicy.AccountID()
	if err != nil {
		t.Fatalf("AccountID() error: %v", err)
	}
	if account != "N/A" {
		t.Errorf("AccountID() = %q, want N/A", account)
	}

	customer := mustPolicy(t, customerRecord("custom1", "ANPACUST", harmlessBody), noRules(), nil)
	if customer.Origin() != models.OriginCustomer {
		t.Errorf("Origin() = %v, want Customer", customer.Origin())
	}
	account, err = customer.AccountID()
	if err != nil {
		t.Fatalf("AccountID() error: %v", err)
	}
	if account != "123456789012" {
		t.Errorf("AccountID() = %q, want 123456789012", account)
	}
}

func TestAccountID_MalformedARN(t *testing.T) {
	p := mustPolicy(t, record("odd", "ANPAODD", "not-an-arn", "/", harmlessBody), noRules(), nil)

	_, err := p.AccountID()
	var malformed *MalformedARNError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedARNError, got %v", err)
	}
	if malformed.ARN != "not-an-arn" {
		t.Errorf("error carries arn %q", malformed.ARN)
	}

	// Parses as an arn but has no account segment.
	p = mustPolicy(t, record("odd2", "ANPAODD2", "arn:aws:s3:::bucket", "/", harmlessBody), noRules(), nil)
	if _, err := p.AccountID(); !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedARNError for an accountless arn, got %v", err)
	}
}

func testInventory(policyID string, awsManaged bool) *models.Inventory {
	inv := models.NewInventory()
	role := models.NewPrincipalPolicies("deploy-role")
	group := models.NewPrincipalPolicies("admins")
	user := models.NewPrincipalPolicies("alice")
	if awsManaged {
		role.AWSManaged[policyID] = "p"
		group.AWSManaged[policyID] = "p"
		user.AWSManaged[policyID] = "p"
	} else {
		role.CustomerManaged[policyID] = "p"
		group.CustomerManaged[policyID] = "p"
		user.CustomerManaged[policyID] = "p"
	}
	inv.Roles["AROA1"] = role
	inv.Groups["AGPA1"] = group
	inv.Users["AIDA1"] = user
	return inv
}

func TestAttachedPrincipals_ByOrigin(t *testing.T) {
	customer := mustPolicy(t, customerRecord("custom1", "ANPA20", harmlessBody), noRules(), nil)
	customer.SetInventory(testInventory("ANPA20", false))

	attached := customer.AttachedPrincipals()
	if !reflect.DeepEqual(attached.Roles, []string{"deploy-role"}) {
		t.Errorf("Roles = %v", attached.Roles)
	}
	if !reflect.DeepEqual(attached.Groups, []string{"admins"}) {
		t.Errorf("Groups = %v", attached.Groups)
	}
	if !reflect.DeepEqual(attached.Users, []string{"alice"}) {
		t.Errorf("Users = %v", attached.Users)
	}

	// The same ids under the aws-managed key are invisible to a
	// customer-managed policy.
	customer.SetInventory(testInventory("ANPA20", true))
	attached = customer.AttachedPrincipals()
	if len(attached.Roles)+len(attached.Groups)+len(attached.Users) != 0 {
		t.Errorf("customer policy read aws-managed references: %+v", attached)
	}

	aws := mustPolicy(t, awsRecord("ReadOnlyAccess", "ANPA21", harmlessBody), noRules(), nil)
	aws.SetInventory(testInventory("ANPA21", true))
	if got := aws.AttachedPrincipals(); len(got.Roles) != 1 {
		t.Errorf("aws policy should read aws-managed references, got %+v", got)
	}
}

func TestAttachedPrincipals_ExcludedShortCircuits(t *testing.T) {
	excl := exclusions.New(exclusions.Config{Policies: []string{"LegacyAdmin"}})
	p := mustPolicy(t, customerRecord("LegacyAdmin", "ANPA22", harmlessBody), excl, nil)
	p.SetInventory(testInventory("ANPA22", false))

	attached := p.AttachedPrincipals()
	if len(attached.Roles) != 0 || len(attached.Groups) != 0 || len(attached.Users) != 0 {
		t.Errorf("excluded policy leaked attachments: %+v", attached)
	}
	if attached.Roles == nil || attached.Groups == nil || attached.Users == nil {
		t.Error("attachment lists should be empty, not nil")
	}
}

func TestAttachedPrincipals_DeterministicOrder(t *testing.T) {
	p := mustPolicy(t, customerRecord("custom1", "ANPA23", harmlessBody), noRules(), nil)

	inv := models.NewInventory()
	for _, pair := range [][2]string{{"AROA9", "zulu"}, {"AROA1", "alpha"}, {"AROA5", "mike"}} {
		refs := models.NewPrincipalPolicies(pair[1])
		refs.CustomerManaged["ANPA23"] = "custom1"
		inv.Roles[pair[0]] = refs
	}
	p.SetInventory(inv)

	want := []string{"alpha", "mike", "zulu"}
	for i := 0; i < 10; i++ {
		if got := p.AttachedPrincipals().Roles; !reflect.DeepEqual(got, want) {
			t.Fatalf("iteration order not deterministic: %v", got)
		}
	}
}

func TestRiskReport_UnfilteredMatchesDocument(t *testing.T) {
	p := mustPolicy(t, customerRecord("custom1", "ANPA30", escalationBody), noRules(), nil)

	r := p.RiskReport(true)
	if !reflect.DeepEqual(r.PrivilegeEscalation.Findings, p.Document().AllowsPrivilegeEscalation()) {
		t.Error("PrivilegeEscalation findings differ from the document's")
	}
	if !reflect.DeepEqual(r.DataExfiltration.Findings, p.Document().AllowsDataExfiltrationActions()) {
		t.Error("DataExfiltration findings differ from the document's")
	}
	if r.InfrastructureModification == nil {
		t.Fatal("extended report should carry InfrastructureModification")
	}
	wantIM := p.Document().InfrastructureModification()
	if len(r.InfrastructureModification.Findings) != len(wantIM) {
		t.Errorf("InfrastructureModification findings = %d, want %d",
			len(r.InfrastructureModification.Findings), len(wantIM))
	}
}

func TestRiskReport_SeverityFilterGatesFindings(t *testing.T) {
	filter, err := models.ParseSeverityFilter([]string{"privilegeescalation"})
	if err != nil {
		t.Fatal(err)
	}
	p := mustPolicy(t, customerRecord("custom1", "ANPA31", escalationBody), noRules(), filter)

	r := p.RiskReport(true)
	if len(r.PrivilegeEscalation.Findings) == 0 {
		t.Error("PrivilegeEscalation should stay populated")
	}
	if len(r.DataExfiltration.Findings) != 0 {
		t.Errorf("DataExfiltration should be filtered, got %v", r.DataExfiltration.Findings)
	}
	if len(r.InfrastructureModification.Findings) != 0 {
		t.Error("InfrastructureModification should be filtered")
	}

	// Metadata survives filtering untouched.
	if r.DataExfiltration.Severity != models.SeverityMedium {
		t.Errorf("DataExfiltration severity = %q", r.DataExfiltration.Severity)
	}
	if r.DataExfiltration.Description == "" {
		t.Error("DataExfiltration description should stay populated")
	}
	if r.DataExfiltration.Findings == nil {
		t.Error("filtered findings should be empty, not nil")
	}
}

func TestRiskReport_EscalationLinks(t *testing.T) {
	p := mustPolicy(t, customerRecord("custom1", "ANPA32", escalationBody), noRules(), nil)

	r := p.RiskReport(false)
	link, ok := r.PrivilegeEscalation.Links["CreateAccessKey"]
	if !ok {
		t.Fatalf("expected a CreateAccessKey link, links = %v", r.PrivilegeEscalation.Links)
	}
	if !strings.HasSuffix(link, "#CreateAccessKey") {
		t.Errorf("link = %q", link)
	}

	// No links when the category is filtered out.
	filter, _ := models.ParseSeverityFilter([]string{"servicewildcard"})
	p = mustPolicy(t, customerRecord("custom2", "ANPA33", escalationBody), noRules(), filter)
	if links := p.RiskReport(false).PrivilegeEscalation.Links; len(links) != 0 {
		t.Errorf("filtered category produced links: %v", links)
	}
}

func TestRiskReport_VariantsShareEverythingElse(t *testing.T) {
	p := mustPolicy(t, customerRecord("custom1", "ANPA34", escalationBody), noRules(), nil)

	standard := p.RiskReport(false)
	extended := p.RiskReport(true)

	if standard.InfrastructureModification != nil {
		t.Error("standard report should omit InfrastructureModification")
	}
	extended.InfrastructureModification = nil
	if !reflect.DeepEqual(standard, extended) {
		t.Error("the two variants should differ only in the sixth category")
	}
}

func TestRiskReport_CarriesMetadataAndExclusion(t *testing.T) {
	rec := customerRecord("LegacyAdmin", "ANPA35", escalationBody)
	excl := exclusions.New(exclusions.Config{Policies: []string{"LegacyAdmin"}})
	p := mustPolicy(t, rec, excl, nil)
	p.SetInventory(testInventory("ANPA35", false))

	r := p.RiskReport(false)
	if !r.IsExcluded {
		t.Error("report should carry the exclusion flag")
	}
	if len(r.AttachedTo.Roles) != 0 {
		t.Error("excluded policy report leaked attachments")
	}
	if r.PolicyName != "LegacyAdmin" || r.PolicyID != "ANPA35" {
		t.Errorf("identity fields wrong: %s/%s", r.PolicyName, r.PolicyID)
	}
	if r.DefaultVersionID == nil || *r.DefaultVersionID != "v2" {
		t.Error("report should carry DefaultVersionId")
	}
	// Findings still populate for an excluded policy; only
	// attachments are suppressed.
	if len(r.PrivilegeEscalation.Findings) == 0 {
		t.Error("exclusion should not blank the findings")
	}
}

func TestMissingOptionalMetadataStaysAbsent(t *testing.T) {
	rec := models.PolicyRecord{
		PolicyName: "bare",
		PolicyID:   "ANPA36",
		Arn:        "arn:aws:iam::123456789012:policy/bare",
		Path:       "/",
		PolicyVersionList: []models.PolicyVersion{
			{Document: json.RawMessage(harmlessBody), IsDefaultVersion: true},
		},
	}
	p := mustPolicy(t, rec, noRules(), nil)

	r := p.RiskReport(false)
	if r.DefaultVersionID != nil || r.AttachmentCount != nil || r.IsAttachable != nil ||
		r.CreateDate != nil || r.UpdateDate != nil || r.PermissionsBoundaryUsageCount != nil {
		t.Error("absent metadata should stay nil in the report")
	}
}
