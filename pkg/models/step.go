package models

// StepStatus represents the lifecycle state of a process step.
type StepStatus string

const (
	StepStatusTodo      StepStatus = "TODO"      // Actionable, waiting for a worker
	StepStatusDone      StepStatus = "DONE"      // Completed successfully
	StepStatusFailed    StepStatus = "FAILED"    // Halted, resolvable via retrigger
	StepStatusSkipped   StepStatus = "SKIPPED"   // Permanently moot, resolvable via retrigger
	StepStatusDuplicate StepStatus = "DUPLICATE" // Redundant enqueue, recorded for audit only
)

// IsTerminal reports whether the status ends the life of a step row. TODO is
// the only actionable status.
func (s StepStatus) IsTerminal() bool {
	return s != StepStatusTodo
}

// Retriggerable reports whether an operator may re-arm a step in this status.
func (s StepStatus) Retriggerable() bool {
	return s == StepStatusFailed || s == StepStatusSkipped
}

// StepType identifies one unit of work within a workflow family. The set is
// closed and known at compile time; valid successors are fixed per family.
type StepType string

// Offer subscription activation steps.
const (
	StepClientCreation        StepType = "CLIENT_CREATION"
	StepTechnicalUserCreation StepType = "TECHNICALUSER_CREATION"
	StepSingleInstanceDetails StepType = "SINGLE_INSTANCE_SUBSCRIPTION_DETAILS_CREATION"
	StepActivateSubscription  StepType = "ACTIVATE_SUBSCRIPTION"
	StepProviderCallback      StepType = "PROVIDER_CALLBACK"
)

// Identity provider federation setup steps.
const (
	StepCreateSharedIdpServiceAccount StepType = "CREATE_SHARED_IDP_SERVICE_ACCOUNT"
	StepUpdateCentralIdpURLs          StepType = "UPDATE_CENTRAL_IDP_URLS"
	StepCreateCentralIdpOrgMapper     StepType = "CREATE_CENTRAL_IDP_ORG_MAPPER"
	StepCreateSharedRealmIdpClient    StepType = "CREATE_SHARED_REALM_IDP_CLIENT"
	StepEnableCentralIdp              StepType = "ENABLE_CENTRAL_IDP"
	StepCreateDatabaseIdp             StepType = "CREATE_DATABASE_IDP"
	StepInvitationCreateUser          StepType = "INVITATION_CREATE_USER"
)

// Network onboarding steps.
const (
	StepSynchronizeUser      StepType = "SYNCHRONIZE_USER"
	StepCallbackOspApproved  StepType = "CALLBACK_OSP_APPROVED"
	StepCallbackOspDeclined  StepType = "CALLBACK_OSP_DECLINED"
	StepCallbackOspSubmitted StepType = "CALLBACK_OSP_SUBMITTED"
)

var stepFamilies = map[StepType]ProcessType{
	StepClientCreation:        ProcessTypeOfferSubscription,
	StepTechnicalUserCreation: ProcessTypeOfferSubscription,
	StepSingleInstanceDetails: ProcessTypeOfferSubscription,
	StepActivateSubscription:  ProcessTypeOfferSubscription,
	StepProviderCallback:      ProcessTypeOfferSubscription,

	StepCreateSharedIdpServiceAccount: ProcessTypeIdentityProviderSetup,
	StepUpdateCentralIdpURLs:          ProcessTypeIdentityProviderSetup,
	StepCreateCentralIdpOrgMapper:     ProcessTypeIdentityProviderSetup,
	StepCreateSharedRealmIdpClient:    ProcessTypeIdentityProviderSetup,
	StepEnableCentralIdp:              ProcessTypeIdentityProviderSetup,
	StepCreateDatabaseIdp:             ProcessTypeIdentityProviderSetup,
	StepInvitationCreateUser:          ProcessTypeIdentityProviderSetup,

	StepSynchronizeUser:      ProcessTypeNetworkRegistration,
	StepCallbackOspApproved:  ProcessTypeNetworkRegistration,
	StepCallbackOspDeclined:  ProcessTypeNetworkRegistration,
	StepCallbackOspSubmitted: ProcessTypeNetworkRegistration,
}

// ProcessType returns the workflow family a step type belongs to.
func (s StepType) ProcessType() (ProcessType, bool) {
	family, ok := stepFamilies[s]

	return family, ok
}

// AllStepTypes returns every known step type. Used to assert registry
// exhaustiveness at startup.
func AllStepTypes() []StepType {
	types := make([]StepType, 0, len(stepFamilies))
	for stepType := range stepFamilies {
		types = append(types, stepType)
	}

	return types
}

// Retrigger identifiers, one administrative operation per step type so
// operators can target a precise failure point.
var retriggerSteps = map[string]StepType{
	"RETRIGGER_CLIENT_CREATION":                               StepClientCreation,
	"RETRIGGER_TECHNICALUSER_CREATION":                        StepTechnicalUserCreation,
	"RETRIGGER_SINGLE_INSTANCE_SUBSCRIPTION_DETAILS_CREATION": StepSingleInstanceDetails,
	"RETRIGGER_ACTIVATE_SUBSCRIPTION":                         StepActivateSubscription,
	"RETRIGGER_PROVIDER_CALLBACK":                             StepProviderCallback,
	"RETRIGGER_CREATE_SHARED_IDP_SERVICE_ACCOUNT":             StepCreateSharedIdpServiceAccount,
	"RETRIGGER_UPDATE_CENTRAL_IDP_URLS":                       StepUpdateCentralIdpURLs,
	"RETRIGGER_CREATE_CENTRAL_IDP_ORG_MAPPER":                 StepCreateCentralIdpOrgMapper,
	"RETRIGGER_CREATE_SHARED_REALM_IDP_CLIENT":                StepCreateSharedRealmIdpClient,
	"RETRIGGER_ENABLE_CENTRAL_IDP":                            StepEnableCentralIdp,
	"RETRIGGER_CREATE_DATABASE_IDP":                           StepCreateDatabaseIdp,
	"RETRIGGER_INVITATION_CREATE_USER":                        StepInvitationCreateUser,
	"RETRIGGER_SYNCHRONIZE_USER":                              StepSynchronizeUser,
	"RETRIGGER_CALLBACK_OSP_APPROVED":                         StepCallbackOspApproved,
	"RETRIGGER_CALLBACK_OSP_DECLINED":                         StepCallbackOspDeclined,
	"RETRIGGER_CALLBACK_OSP_SUBMITTED":                        StepCallbackOspSubmitted,
}

// StepTypeFromRetrigger resolves a RETRIGGER_* identifier to its base step
// type. The bare step type name is accepted as well.
func StepTypeFromRetrigger(identifier string) (StepType, bool) {
	if stepType, ok := retriggerSteps[identifier]; ok {
		return stepType, true
	}

	stepType := StepType(identifier)
	if _, ok := stepFamilies[stepType]; ok {
		return stepType, true
	}

	return "", false
}
