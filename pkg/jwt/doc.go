// Package jwt issues and verifies the API's RS256 access tokens.
//
//	svc, err := jwt.NewService(jwt.Config{
//	    PrivateKeyPath: "./keys/private.pem",
//	    Issuer:         "haven.forgo.software",
//	    ExpirationMins: 15,
//	})
//	token, err := svc.Sign(jwt.Claims{UserID: "user:abc", Role: "user"})
//	claims, err := svc.Validate(token)
//
// Tokens carry the user id, email and role. Verification status is not
// embedded since it changes independently of token lifetime; services read
// it from the profile.
package jwt
