package domain

// Result is the uniform outcome envelope returned by identity operations.
// Expected business failures (bad credentials, wrong state) are encoded here
// rather than as errors; only infrastructure failures travel as error values.
type Result struct {
	Succeeded bool     `json:"succeeded"`
	Message   string   `json:"message"`
	Errors    []string `json:"errors"`
}

// Success builds a succeeded result.
func Success(message string) Result {
	return Result{Succeeded: true, Message: message, Errors: []string{}}
}

// Failure builds a failed result with caller-visible reasons.
func Failure(message string, errs ...string) Result {
	if errs == nil {
		errs = []string{}
	}
	return Result{Succeeded: false, Message: message, Errors: errs}
}

// AccessToken is the issued credential pair.
type AccessToken struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// LoginPayload wraps the issued credentials for the API layer.
type LoginPayload struct {
	AccessToken AccessToken `json:"accessToken"`
}

// LoginResult couples a Result with the optional credential payload.
type LoginResult struct {
	Result
	Data *LoginPayload `json:"data,omitempty"`
}

// LoginSuccess builds a succeeded login result carrying the payload.
func LoginSuccess(message string, payload LoginPayload) LoginResult {
	return LoginResult{Result: Success(message), Data: &payload}
}

// LoginFailure builds a failed login result.
func LoginFailure(message string, errs ...string) LoginResult {
	return LoginResult{Result: Failure(message, errs...)}
}
