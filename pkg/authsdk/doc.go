/*
Package authsdk holds the wire types of the storefront authentication API and
a small client for it.

The HTTP handlers encode and decode these types directly, so the client and
server cannot drift apart:

	c := authsdk.NewClient("http://localhost:8080")

	tokens, err := c.Register(ctx, authsdk.RegisterRequest{
		Email:    "alice@example.com",
		Password: "correct horse battery staple",
	})

	login, err := c.Login(ctx, "alice@example.com", "correct horse battery staple")
	if login.RequiresTwoFactor {
		tokens, err = c.VerifyTwoFactorLogin(ctx, login.TemporaryToken, code)
	}

	me, err := c.Me(ctx, tokens.AccessToken)

Non-2xx responses are returned as *APIError; compare with errors.As or the
Is* helpers.
*/
package authsdk
