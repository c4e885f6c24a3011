// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FlatRent Contributors

//go:build integration

package auth_test

import (
	"net/http"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/flatrent/flatrent/internal/auth"
	authpg "github.com/flatrent/flatrent/internal/auth/postgres"
	authredis "github.com/flatrent/flatrent/internal/auth/redis"
	"github.com/flatrent/flatrent/internal/httpapi"
)

var _ = Describe("Auth API", func() {
	backends := map[string]func() auth.RefreshTokenRepository{
		"postgres": func() auth.RefreshTokenRepository { return authpg.NewRefreshTokenRepository(env.pool) },
		"redis":    func() auth.RefreshTokenRepository { return authredis.NewRefreshTokenRepository(env.redis) },
	}

	for name, newRepo := range backends {
		Context("with "+name+" refresh tokens", func() {
			var api *client

			BeforeEach(func() {
				env.reset()
				api = newClient(newRepo())
			})

			register := func(email string) httpapi.AuthResponse {
				var res httpapi.AuthResponse
				status := api.post("/register", httpapi.RegisterRequest{
					Email: email, Password: "secret1", Name: "Ann", Role: "TENANT",
				}, &res)
				Expect(status).To(Equal(http.StatusOK))
				return res
			}

			Describe("registration and login", func() {
				It("issues a working session", func() {
					res := register("ann@flatrent.test")
					Expect(res.TokenType).To(Equal("Bearer"))
					Expect(res.UserID).To(BeNumerically(">", 0))
					Expect(res.Role).To(Equal("TENANT"))

					var me httpapi.PrincipalResponse
					Expect(api.do(http.MethodGet, "/me", res.AccessToken, nil, &me)).To(Equal(http.StatusOK))
					Expect(me.Email).To(Equal("ann@flatrent.test"))
					Expect(me.Authorities).To(ConsistOf("ROLE_TENANT"))
				})

				It("rejects a duplicate email with 409", func() {
					register("ann@flatrent.test")

					var errBody httpapi.ErrorResponse
					status := api.post("/register", httpapi.RegisterRequest{
						Email: "ann@flatrent.test", Password: "other1", Name: "Other", Role: "LANDLORD",
					}, &errBody)
					Expect(status).To(Equal(http.StatusConflict))
					Expect(errBody.Status).To(Equal("error"))
				})

				It("rejects a wrong password with 401", func() {
					register("ann@flatrent.test")

					status := api.post("/login", httpapi.LoginRequest{Email: "ann@flatrent.test", Password: "wrong1"}, nil)
					Expect(status).To(Equal(http.StatusUnauthorized))
				})

				It("keeps one refresh token per user across logins", func() {
					first := register("ann@flatrent.test")

					var second httpapi.AuthResponse
					Expect(api.post("/login", httpapi.LoginRequest{Email: "ann@flatrent.test", Password: "secret1"}, &second)).
						To(Equal(http.StatusOK))

					Expect(api.post("/refresh-token", httpapi.RefreshRequest{RefreshToken: first.RefreshToken}, nil)).
						To(Equal(http.StatusUnauthorized))
					Expect(api.post("/refresh-token", httpapi.RefreshRequest{RefreshToken: second.RefreshToken}, nil)).
						To(Equal(http.StatusOK))
				})
			})

			Describe("refresh", func() {
				It("rotates the refresh token", func() {
					res := register("ann@flatrent.test")

					var rotated httpapi.AuthResponse
					Expect(api.post("/refresh-token", httpapi.RefreshRequest{RefreshToken: res.RefreshToken}, &rotated)).
						To(Equal(http.StatusOK))
					Expect(rotated.RefreshToken).NotTo(Equal(res.RefreshToken))

					Expect(api.post("/refresh-token", httpapi.RefreshRequest{RefreshToken: res.RefreshToken}, nil)).
						To(Equal(http.StatusUnauthorized))
				})
			})

			Describe("logout", func() {
				It("ends the refreshable session", func() {
					res := register("ann@flatrent.test")

					var msg httpapi.MessageResponse
					Expect(api.do(http.MethodPost, "/logout", res.AccessToken, nil, &msg)).To(Equal(http.StatusOK))
					Expect(msg.Message).To(Equal("logged out"))

					Expect(api.post("/refresh-token", httpapi.RefreshRequest{RefreshToken: res.RefreshToken}, nil)).
						To(Equal(http.StatusUnauthorized))
				})
			})

			Describe("password reset", func() {
				It("replaces the password and revokes the session", func() {
					res := register("ann@flatrent.test")

					var forgot httpapi.ForgotPasswordResponse
					Expect(api.post("/forgot-password", httpapi.ForgotPasswordRequest{Email: "ann@flatrent.test"}, &forgot)).
						To(Equal(http.StatusOK))
					Expect(forgot.ResetToken).NotTo(BeEmpty())

					Expect(api.post("/reset-password", httpapi.ResetPasswordRequest{Token: forgot.ResetToken, NewPassword: "newpass1"}, nil)).
						To(Equal(http.StatusOK))

					Expect(api.post("/refresh-token", httpapi.RefreshRequest{RefreshToken: res.RefreshToken}, nil)).
						To(Equal(http.StatusUnauthorized))
					Expect(api.post("/login", httpapi.LoginRequest{Email: "ann@flatrent.test", Password: "secret1"}, nil)).
						To(Equal(http.StatusUnauthorized))
					Expect(api.post("/login", httpapi.LoginRequest{Email: "ann@flatrent.test", Password: "newpass1"}, nil)).
						To(Equal(http.StatusOK))

					Expect(api.post("/reset-password", httpapi.ResetPasswordRequest{Token: forgot.ResetToken, NewPassword: "again12"}, nil)).
						To(Equal(http.StatusBadRequest))
				})

				It("returns 404 for an unknown email", func() {
					Expect(api.post("/forgot-password", httpapi.ForgotPasswordRequest{Email: "ghost@flatrent.test"}, nil)).
						To(Equal(http.StatusNotFound))
				})
			})

			Describe("maintenance", func() {
				It("purges nothing while tokens are live", func() {
					register("ann@flatrent.test")

					refreshed, resets, err := api.svc.PurgeExpired(env.ctx)
					Expect(err).NotTo(HaveOccurred())
					Expect(refreshed).To(BeZero())
					Expect(resets).To(BeZero())
				})
			})
		})
	}
})
