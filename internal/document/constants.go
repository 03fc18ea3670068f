package document

// escalationMethod pairs a named privilege escalation technique with
// the actions that must all be allowed, without resource constraints,
// for the technique to work.
type escalationMethod struct {
	name    string
	actions []string
}

// privilegeEscalationMethods is the catalog of known escalation
// techniques, after the Rhino Security Labs research set. Order is
// fixed so findings come out deterministically.
var privilegeEscalationMethods = []escalationMethod{
	{"CreateNewPolicyVersion", []string{"iam:CreatePolicyVersion"}},
	{"SetExistingDefaultPolicyVersion", []string{"iam:SetDefaultPolicyVersion"}},
	{"CreateEC2WithExistingIP", []string{"iam:PassRole", "ec2:RunInstances"}},
	{"CreateAccessKey", []string{"iam:CreateAccessKey"}},
	{"CreateLoginProfile", []string{"iam:CreateLoginProfile"}},
	{"UpdateLoginProfile", []string{"iam:UpdateLoginProfile"}},
	{"AttachUserPolicy", []string{"iam:AttachUserPolicy"}},
	{"AttachGroupPolicy", []string{"iam:AttachGroupPolicy"}},
	{"AttachRolePolicy", []string{"iam:AttachRolePolicy", "sts:AssumeRole"}},
	{"PutUserPolicy", []string{"iam:PutUserPolicy"}},
	{"PutGroupPolicy", []string{"iam:PutGroupPolicy"}},
	{"PutRolePolicy", []string{"iam:PutRolePolicy", "sts:AssumeRole"}},
	{"AddUserToGroup", []string{"iam:AddUserToGroup"}},
	{"UpdateRolePolicyToAssumeIt", []string{"iam:UpdateAssumeRolePolicy", "sts:AssumeRole"}},
	{"PassExistingRoleToNewLambdaThenInvoke", []string{"iam:PassRole", "lambda:CreateFunction", "lambda:InvokeFunction"}},
	{"PassExistingRoleToNewLambdaThenTriggerWithNewDynamo", []string{"iam:PassRole", "lambda:CreateFunction", "lambda:CreateEventSourceMapping", "dynamodb:CreateTable", "dynamodb:PutItem"}},
	{"PassExistingRoleToNewLambdaThenTriggerWithExistingDynamo", []string{"iam:PassRole", "lambda:CreateFunction", "lambda:CreateEventSourceMapping"}},
	{"PassExistingRoleToNewGlueDevEndpoint", []string{"iam:PassRole", "glue:CreateDevEndpoint"}},
	{"UpdateExistingGlueDevEndpoint", []string{"glue:UpdateDevEndpoint"}},
	{"PassExistingRoleToCloudFormation", []string{"iam:PassRole", "cloudformation:CreateStack"}},
	{"PassExistingRoleToNewDataPipeline", []string{"iam:PassRole", "datapipeline:CreatePipeline", "datapipeline:PutPipelineDefinition"}},
	{"EditExistingLambdaFunctionWithRole", []string{"lambda:UpdateFunctionCode"}},
	{"PassExistingRoleToNewCodeStarProject", []string{"codestar:CreateProject", "iam:PassRole"}},
	{"CodeStarCreateProjectFromTemplate", []string{"codestar:CreateProjectFromTemplate"}},
	{"PassExistingRoleToNewCodeBuildProject", []string{"codebuild:CreateProject", "codebuild:StartBuild", "iam:PassRole"}},
}

// dataExfiltrationActions are read-only actions that leak sensitive
// data in bulk when allowed without resource constraints.
var dataExfiltrationActions = []string{
	"s3:GetObject",
	"ssm:GetParameter",
	"ssm:GetParameters",
	"ssm:GetParametersByPath",
	"secretsmanager:GetSecretValue",
}

// credentialsExposureActions return credentials or secrets in their
// API response.
var credentialsExposureActions = []string{
	"chime:CreateApiKey",
	"codepipeline:PollForJobs",
	"cognito-identity:GetCredentialsForIdentity",
	"cognito-identity:GetOpenIdToken",
	"cognito-identity:GetOpenIdTokenForDeveloperIdentity",
	"connect:GetFederationToken",
	"ec2:GetPasswordData",
	"ecr:GetAuthorizationToken",
	"gamelift:RequestUploadCredentials",
	"iam:CreateAccessKey",
	"iam:CreateLoginProfile",
	"iam:CreateServiceSpecificCredential",
	"iam:ResetServiceSpecificCredential",
	"iam:UpdateAccessKey",
	"lightsail:GetInstanceAccessDetails",
	"lightsail:GetRelationalDatabaseMasterUserPassword",
	"mediapackage:RotateChannelCredentials",
	"mediapackage:RotateIngestEndpointCredentials",
	"rds-db:connect",
	"redshift:GetClusterCredentials",
	"sso:GetRoleCredentials",
	"sts:AssumeRole",
	"sts:AssumeRoleWithSAML",
	"sts:AssumeRoleWithWebIdentity",
	"sts:GetFederationToken",
	"sts:GetSessionToken",
}

// permissionsManagementActions change who can access what. Allowing
// any of them without resource constraints can expose a resource to
// other principals or accounts.
var permissionsManagementActions = []string{
	// IAM policy and principal management
	"iam:AttachGroupPolicy",
	"iam:AttachRolePolicy",
	"iam:AttachUserPolicy",
	"iam:CreatePolicy",
	"iam:CreatePolicyVersion",
	"iam:DeleteAccountPasswordPolicy",
	"iam:DeleteGroupPolicy",
	"iam:DeletePolicy",
	"iam:DeletePolicyVersion",
	"iam:DeleteRolePermissionsBoundary",
	"iam:DeleteRolePolicy",
	"iam:DeleteUserPermissionsBoundary",
	"iam:DeleteUserPolicy",
	"iam:DetachGroupPolicy",
	"iam:DetachRolePolicy",
	"iam:DetachUserPolicy",
	"iam:PutGroupPolicy",
	"iam:PutRolePermissionsBoundary",
	"iam:PutRolePolicy",
	"iam:PutUserPermissionsBoundary",
	"iam:PutUserPolicy",
	"iam:SetDefaultPolicyVersion",
	"iam:UpdateAssumeRolePolicy",

	// KMS key policies and grants
	"kms:CreateGrant",
	"kms:PutKeyPolicy",
	"kms:RetireGrant",
	"kms:RevokeGrant",

	// Resource policies and ACLs
	"backup:DeleteBackupVaultAccessPolicy",
	"backup:PutBackupVaultAccessPolicy",
	"cloudformation:SetStackPolicy",
	"ec2:CreateNetworkInterfacePermission",
	"ec2:ModifyImageAttribute",
	"ec2:ModifySnapshotAttribute",
	"ec2:ModifyVpcEndpointServicePermissions",
	"ecr:DeleteRepositoryPolicy",
	"ecr:SetRepositoryPolicy",
	"efs:DeleteFileSystemPolicy",
	"efs:PutFileSystemPolicy",
	"events:PutPermission",
	"events:RemovePermission",
	"glacier:SetVaultAccessPolicy",
	"glue:DeleteResourcePolicy",
	"glue:PutResourcePolicy",
	"iot:AttachPolicy",
	"iot:DetachPolicy",
	"lambda:AddLayerVersionPermission",
	"lambda:AddPermission",
	"lambda:RemovePermission",
	"logs:DeleteResourcePolicy",
	"logs:PutResourcePolicy",
	"ram:AssociateResourceShare",
	"ram:CreateResourceShare",
	"ram:DisassociateResourceShare",
	"s3:DeleteBucketPolicy",
	"s3:PutBucketAcl",
	"s3:PutBucketPolicy",
	"s3:PutObjectAcl",
	"secretsmanager:DeleteResourcePolicy",
	"secretsmanager:PutResourcePolicy",
	"ses:DeleteIdentityPolicy",
	"ses:PutIdentityPolicy",
	"sns:AddPermission",
	"sns:RemovePermission",
	"sqs:AddPermission",
	"sqs:RemovePermission",
}

// readOnlyVerbPrefixes mark action verbs that only read state. Actions
// starting with one of these do not count as infrastructure
// modification unless the exclusion config always-includes them.
var readOnlyVerbPrefixes = []string{
	"get",
	"list",
	"describe",
	"view",
	"search",
	"lookup",
	"check",
	"verify",
	"preview",
	"estimate",
	"export",
	"download",
}
