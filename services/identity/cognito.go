package identity

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/aws/smithy-go"
)

// cognitoAPI is the subset of the Cognito client used here.
type cognitoAPI interface {
	InitiateAuth(ctx context.Context, in *cip.InitiateAuthInput, optFns ...func(*cip.Options)) (*cip.InitiateAuthOutput, error)
	RespondToAuthChallenge(ctx context.Context, in *cip.RespondToAuthChallengeInput, optFns ...func(*cip.Options)) (*cip.RespondToAuthChallengeOutput, error)
	SignUp(ctx context.Context, in *cip.SignUpInput, optFns ...func(*cip.Options)) (*cip.SignUpOutput, error)
	ConfirmSignUp(ctx context.Context, in *cip.ConfirmSignUpInput, optFns ...func(*cip.Options)) (*cip.ConfirmSignUpOutput, error)
	ResendConfirmationCode(ctx context.Context, in *cip.ResendConfirmationCodeInput, optFns ...func(*cip.Options)) (*cip.ResendConfirmationCodeOutput, error)
	ForgotPassword(ctx context.Context, in *cip.ForgotPasswordInput, optFns ...func(*cip.Options)) (*cip.ForgotPasswordOutput, error)
	ConfirmForgotPassword(ctx context.Context, in *cip.ConfirmForgotPasswordInput, optFns ...func(*cip.Options)) (*cip.ConfirmForgotPasswordOutput, error)
	GlobalSignOut(ctx context.Context, in *cip.GlobalSignOutInput, optFns ...func(*cip.Options)) (*cip.GlobalSignOutOutput, error)
	GetUser(ctx context.Context, in *cip.GetUserInput, optFns ...func(*cip.Options)) (*cip.GetUserOutput, error)
}

// CognitoProvider talks to a Cognito user pool app client. Only public
// (unsigned) user-pool operations are used, so no AWS credentials are needed.
type CognitoProvider struct {
	api          cognitoAPI
	clientID     string
	clientSecret string
}

// NewCognitoProvider builds a provider for the given region and app client.
func NewCognitoProvider(region, clientID, clientSecret string) *CognitoProvider {
	client := cip.New(cip.Options{Region: region})
	return newCognitoProvider(client, clientID, clientSecret)
}

func newCognitoProvider(api cognitoAPI, clientID, clientSecret string) *CognitoProvider {
	return &CognitoProvider{api: api, clientID: clientID, clientSecret: clientSecret}
}

// secretHash is required on every call when the app client has a secret.
func (p *CognitoProvider) secretHash(username string) *string {
	if p.clientSecret == "" {
		return nil
	}
	mac := hmac.New(sha256.New, []byte(p.clientSecret))
	mac.Write([]byte(username + p.clientID))
	return aws.String(base64.StdEncoding.EncodeToString(mac.Sum(nil)))
}

func (p *CognitoProvider) authParams(username string, params map[string]string) map[string]string {
	if h := p.secretHash(username); h != nil {
		params["SECRET_HASH"] = *h
	}
	return params
}

func (p *CognitoProvider) SignIn(ctx context.Context, username, password string) (*SignInResult, error) {
	out, err := p.api.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow: types.AuthFlowTypeUserPasswordAuth,
		ClientId: aws.String(p.clientID),
		AuthParameters: p.authParams(username, map[string]string{
			"USERNAME": username,
			"PASSWORD": password,
		}),
	})
	if err != nil {
		return nil, classify("sign-in", err)
	}
	if out.ChallengeName == types.ChallengeNameTypeNewPasswordRequired {
		return &SignInResult{
			Challenge:        ChallengeNewPassword,
			ChallengeSession: aws.ToString(out.Session),
		}, nil
	}
	if out.AuthenticationResult == nil {
		return nil, &Error{Kind: KindUnknown, Op: "sign-in", Err: errors.New("unsupported challenge " + string(out.ChallengeName))}
	}
	return &SignInResult{Tokens: tokensFrom(out.AuthenticationResult)}, nil
}

func (p *CognitoProvider) RespondNewPassword(ctx context.Context, username, challengeSession, newPassword string) (*Tokens, error) {
	responses := map[string]string{
		"USERNAME":     username,
		"NEW_PASSWORD": newPassword,
	}
	out, err := p.api.RespondToAuthChallenge(ctx, &cip.RespondToAuthChallengeInput{
		ChallengeName:      types.ChallengeNameTypeNewPasswordRequired,
		ClientId:           aws.String(p.clientID),
		Session:            aws.String(challengeSession),
		ChallengeResponses: p.authParams(username, responses),
	})
	if err != nil {
		return nil, classify("new-password", err)
	}
	if out.AuthenticationResult == nil {
		return nil, &Error{Kind: KindUnknown, Op: "new-password", Err: errors.New("no tokens after challenge")}
	}
	return tokensFrom(out.AuthenticationResult), nil
}

func (p *CognitoProvider) SignUp(ctx context.Context, username, password string, attributes map[string]string) (*SignUpResult, error) {
	attrs := make([]types.AttributeType, 0, len(attributes))
	for name, value := range attributes {
		attrs = append(attrs, types.AttributeType{Name: aws.String(name), Value: aws.String(value)})
	}
	out, err := p.api.SignUp(ctx, &cip.SignUpInput{
		ClientId:       aws.String(p.clientID),
		Username:       aws.String(username),
		Password:       aws.String(password),
		SecretHash:     p.secretHash(username),
		UserAttributes: attrs,
	})
	if err != nil {
		return nil, classify("sign-up", err)
	}
	res := &SignUpResult{UserSub: aws.ToString(out.UserSub), UserConfirmed: out.UserConfirmed}
	if out.CodeDeliveryDetails != nil {
		res.Destination = aws.ToString(out.CodeDeliveryDetails.Destination)
	}
	return res, nil
}

func (p *CognitoProvider) ConfirmSignUp(ctx context.Context, username, code string) error {
	_, err := p.api.ConfirmSignUp(ctx, &cip.ConfirmSignUpInput{
		ClientId:         aws.String(p.clientID),
		Username:         aws.String(username),
		ConfirmationCode: aws.String(code),
		SecretHash:       p.secretHash(username),
	})
	return classify("confirm-sign-up", err)
}

func (p *CognitoProvider) ResendCode(ctx context.Context, username string) (string, error) {
	out, err := p.api.ResendConfirmationCode(ctx, &cip.ResendConfirmationCodeInput{
		ClientId:   aws.String(p.clientID),
		Username:   aws.String(username),
		SecretHash: p.secretHash(username),
	})
	if err != nil {
		return "", classify("resend-code", err)
	}
	if out.CodeDeliveryDetails == nil {
		return "", nil
	}
	return aws.ToString(out.CodeDeliveryDetails.Destination), nil
}

func (p *CognitoProvider) ForgotPassword(ctx context.Context, username string) (string, error) {
	out, err := p.api.ForgotPassword(ctx, &cip.ForgotPasswordInput{
		ClientId:   aws.String(p.clientID),
		Username:   aws.String(username),
		SecretHash: p.secretHash(username),
	})
	if err != nil {
		return "", classify("forgot-password", err)
	}
	if out.CodeDeliveryDetails == nil {
		return "", nil
	}
	return aws.ToString(out.CodeDeliveryDetails.Destination), nil
}

func (p *CognitoProvider) ConfirmForgotPassword(ctx context.Context, username, code, newPassword string) error {
	_, err := p.api.ConfirmForgotPassword(ctx, &cip.ConfirmForgotPasswordInput{
		ClientId:         aws.String(p.clientID),
		Username:         aws.String(username),
		ConfirmationCode: aws.String(code),
		Password:         aws.String(newPassword),
		SecretHash:       p.secretHash(username),
	})
	return classify("confirm-forgot-password", err)
}

func (p *CognitoProvider) Refresh(ctx context.Context, username, refreshToken string) (*Tokens, error) {
	out, err := p.api.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow: types.AuthFlowTypeRefreshTokenAuth,
		ClientId: aws.String(p.clientID),
		AuthParameters: p.authParams(username, map[string]string{
			"REFRESH_TOKEN": refreshToken,
		}),
	})
	if err != nil {
		return nil, classify("refresh", err)
	}
	if out.AuthenticationResult == nil {
		return nil, &Error{Kind: KindRefreshInvalid, Op: "refresh", Err: errors.New("no tokens returned")}
	}
	return tokensFrom(out.AuthenticationResult), nil
}

func (p *CognitoProvider) SignOut(ctx context.Context, accessToken string) error {
	_, err := p.api.GlobalSignOut(ctx, &cip.GlobalSignOutInput{AccessToken: aws.String(accessToken)})
	return classify("sign-out", err)
}

func (p *CognitoProvider) CurrentUser(ctx context.Context, accessToken string) (*User, error) {
	out, err := p.api.GetUser(ctx, &cip.GetUserInput{AccessToken: aws.String(accessToken)})
	if err != nil {
		return nil, classify("get-user", err)
	}
	u := &User{Username: aws.ToString(out.Username), Attributes: make(map[string]string, len(out.UserAttributes))}
	for _, a := range out.UserAttributes {
		u.Attributes[aws.ToString(a.Name)] = aws.ToString(a.Value)
	}
	return u, nil
}

func tokensFrom(r *types.AuthenticationResultType) *Tokens {
	return &Tokens{
		IdentityToken: aws.ToString(r.IdToken),
		AccessToken:   aws.ToString(r.AccessToken),
		RefreshToken:  aws.ToString(r.RefreshToken),
		ExpiresIn:     time.Duration(r.ExpiresIn) * time.Second,
	}
}

// classify maps Cognito exceptions onto Kind. A NotAuthorized during refresh
// means the refresh token itself is no longer usable.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	kind := KindUnknown

	var (
		notAuthorized   *types.NotAuthorizedException
		userNotFound    *types.UserNotFoundException
		notConfirmed    *types.UserNotConfirmedException
		resetRequired   *types.PasswordResetRequiredException
		tooMany         *types.TooManyRequestsException
		limitExceeded   *types.LimitExceededException
		tooManyFailed   *types.TooManyFailedAttemptsException
		invalidParam    *types.InvalidParameterException
		invalidPassword *types.InvalidPasswordException
		expiredCode     *types.ExpiredCodeException
		codeMismatch    *types.CodeMismatchException
		usernameExists  *types.UsernameExistsException
		internal        *types.InternalErrorException
	)
	switch {
	case errors.As(err, &notAuthorized):
		kind = KindInvalidCredentials
		if op == "refresh" {
			kind = KindRefreshInvalid
		}
	case errors.As(err, &userNotFound):
		kind = KindUserNotFound
	case errors.As(err, &notConfirmed):
		kind = KindUnconfirmed
	case errors.As(err, &resetRequired):
		kind = KindPasswordResetRequired
	case errors.As(err, &tooMany), errors.As(err, &limitExceeded), errors.As(err, &tooManyFailed):
		kind = KindThrottled
	case errors.As(err, &invalidParam):
		kind = KindInvalidParameter
	case errors.As(err, &invalidPassword):
		kind = KindWeakPassword
	case errors.As(err, &expiredCode):
		kind = KindCodeExpired
	case errors.As(err, &codeMismatch):
		kind = KindCodeMismatch
	case errors.As(err, &usernameExists):
		kind = KindUserExists
	case errors.As(err, &internal):
		kind = KindUnavailable
	default:
		var apiErr smithy.APIError
		if !errors.As(err, &apiErr) {
			// Not a service answer at all: network or context failure.
			kind = KindUnavailable
		}
	}
	return &Error{Kind: kind, Op: op, Err: err}
}
