package models

// People is a tracked social media account polled by the ingestion jobs.
// (Platform, PlatformAccountID) is unique.
type People struct {
	ID                string   `json:"id" dynamodbav:"id"`
	Platform          Platform `json:"platform" dynamodbav:"platform"`
	PlatformAccountID string   `json:"platform_account_id" dynamodbav:"platform_account_id"`
	Username          string   `json:"username" dynamodbav:"username"`
	OwnerID           string   `json:"owner_id,omitempty" dynamodbav:"owner_id,omitempty"`
}

// UserCredential links a tracked account to the wallet-owning user.
type UserCredential struct {
	ID       string `json:"id" dynamodbav:"id"`
	PeopleID string `json:"people_id" dynamodbav:"people_id"`
	UserID   string `json:"user_id" dynamodbav:"user_id"`
}
