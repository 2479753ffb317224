package program

// -----------------------------------------------------------------------------
// Program error codes
// -----------------------------------------------------------------------------
//
// Every state transition fails with one of the named errors below, never a
// bare string. The presentation layer keys its messages off Code, so codes
// are stable API; the message text is not.

// Error is a typed program failure with a stable code.
type Error struct {
	Code string
	msg  string
}

func (e *Error) Error() string {
	return e.msg
}

func code(c, msg string) *Error {
	return &Error{Code: c, msg: msg}
}

// NewError builds a typed error outside this package, for layers that speak
// the same code convention.
func NewError(c, msg string) *Error {
	return code(c, msg)
}

// Authorization
var (
	ErrUnauthorized = code("Unauthorized", "signer does not match stored authority")
)

// Notes
var (
	ErrNoteEmpty      = code("NoteEmpty", "note title must not be empty")
	ErrNoteTooLong    = code("NoteTooLong", "note title exceeds maximum length")
	ErrContentTooLong = code("ContentTooLong", "content exceeds maximum length")
)

// Tasks
var (
	ErrTaskEmpty   = code("EmptyTask", "task title must not be empty")
	ErrTaskTooLong = code("TaskTooLong", "task title exceeds maximum length")
)

// Social
var (
	ErrUserNotInitialized = code("UserNotInitialized", "user account must be initialized before posting")
	ErrNameEmpty          = code("NameEmpty", "name must not be empty")
	ErrNameTooLong        = code("NameTooLong", "name exceeds maximum length")
	ErrAvatarTooLong      = code("AvatarTooLong", "avatar url exceeds maximum length")
	ErrPostEmpty          = code("PostEmpty", "post title must not be empty")
	ErrPostTooLong        = code("PostTooLong", "post title exceeds maximum length")
)

// Crowdfunding
var (
	ErrTitleEmpty              = code("TitleEmpty", "campaign title must not be empty")
	ErrTitleTooLong            = code("TitleTooLong", "campaign title exceeds maximum length")
	ErrDescriptionTooLong      = code("DescriptionTooLong", "campaign description exceeds maximum length")
	ErrInvalidGoalAmount       = code("InvalidGoalAmount", "campaign goal must be greater than zero")
	ErrInvalidDates            = code("InvalidDates", "date range is invalid")
	ErrInactiveCampaign        = code("InactiveCampaign", "campaign is no longer active")
	ErrInvalidDonationAmount   = code("InvalidDonationAmount", "donation amount must be greater than zero")
	ErrInvalidWithdrawalAmount = code("InvalidWithdrawalAmount", "nothing eligible to withdraw")
	ErrCampaignStillActive     = code("CampaignStillActive", "campaign is still accepting donations")
	ErrCampaignGoalActualized  = code("CampaignGoalActualized", "campaign funds were already withdrawn")
	ErrCampaignNotFound        = code("CampaignNotFound", "campaign does not exist")
	ErrCampaignHasDonations    = code("CampaignHasDonations", "campaign with donations cannot be deleted")
	ErrInsufficientFund        = code("InsufficientFund", "balance is too low for this transfer")
	ErrInvalidPlatformAddress  = code("InvalidPlatformAddress", "platform fee address is not a valid identity")
	ErrInvalidPlatformFee      = code("InvalidPlatformFee", "platform fee is out of range")
)

// Voting
var (
	ErrAlreadyInitialized         = code("AlreadyInitialized", "module singletons already exist")
	ErrNotInitialized             = code("NotInitialized", "module singletons are missing")
	ErrPollDoesNotExist           = code("PollDoesNotExist", "poll does not exist")
	ErrPollNotActive              = code("PollNotActive", "poll is not open for this operation")
	ErrCandidateNotRegistered     = code("CandidateNotRegistered", "candidate is not registered for this poll")
	ErrCandidateAlreadyRegistered = code("CandidateAlreadyRegistered", "candidate name already registered for this poll")
	ErrVoterAlreadyVoted          = code("VoterAlreadyVoted", "voter has already voted in this poll")
	ErrPollDescriptionTooLong     = code("PollDescriptionTooLong", "poll description exceeds maximum length")
	ErrPollCounterUnderflow       = code("PollCounterUnderflow", "poll counter would underflow")
)

// Chat
var (
	ErrMessageEmpty          = code("MessageEmpty", "message content must not be empty")
	ErrMessageTooLong        = code("MessageTooLong", "message content exceeds maximum length")
	ErrMessageTimestampTaken = code("MessageTimestampTaken", "a message with this timestamp already exists in the thread")
)
