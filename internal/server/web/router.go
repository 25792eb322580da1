package web

// registerRoutes wires every route on the app. Static segments under /fasts
// are registered before /fasts/:id so they are not captured as ids.
func (s *Server) registerRoutes() {
	app := s.app

	app.Use(s.requestLogger())

	app.Get("/healthz", s.healthz)

	authLimit := rateLimitAuth()
	app.Get("/login", s.loginPage)
	app.Post("/login", authLimit, s.login)
	app.Post("/logout", s.logout)
	app.Get("/register", s.registerPage)
	app.Post("/register", authLimit, s.register)

	app.Get("/", s.requireUser, s.dashboard)
	app.Get("/fasts/start", s.requireUser, s.startFastPage)
	app.Post("/fasts/start", s.requireUser, s.startFast)
	app.Get("/fasts/end", s.requireUser, s.endFastPage)
	app.Post("/fasts/end", s.requireUser, s.endFast)
	app.Get("/fasts/timer", s.requireUser, s.timer)
	app.Get("/fasts/export/csv", s.requireUser, s.exportCSV)
	app.Get("/fasts/export/json", s.requireUser, s.exportJSON)
	app.Get("/fasts", s.requireUser, s.listFasts)
	app.Get("/fasts/:id", s.requireUser, s.fastDetail)
	app.Get("/fasts/:id/edit", s.requireUser, s.editFastPage)
	app.Post("/fasts/:id/edit", s.requireUser, s.editFast)
	app.Get("/fasts/:id/delete", s.requireUser, s.deleteFastPage)
	app.Post("/fasts/:id/delete", s.requireUser, s.deleteFast)

	app.Get("/profile", s.requireUser, s.profilePage)
	app.Post("/profile", s.requireUser, s.updateProfile)

	// Avatars stored on disk are served straight from the data directory.
	// The s3 backend hands out presigned URLs instead.
	if s.config.AvatarBackend == "disk" {
		app.Static("/avatars", s.config.AvatarDir)
	}

	api := app.Group("/api/v1")
	api.Use(s.corsMiddleware())
	api.Post("/auth/register", authLimit, s.apiRegister)
	api.Post("/auth/login", authLimit, s.apiLogin)
	api.Post("/auth/refresh", authLimit, s.apiRefresh)
	api.Get("/users/me", s.requireToken, s.apiMe)
	api.Patch("/users/me", s.requireToken, s.apiUpdateMe)
	api.Get("/profile", s.requireToken, s.apiProfile)
	api.Patch("/profile", s.requireToken, s.apiUpdateProfile)
	api.Put("/profile/avatar", s.requireToken, s.apiUploadAvatar)
	api.Delete("/profile/avatar", s.requireToken, s.apiDeleteAvatar)
	api.Post("/profile/configuration", s.requireToken, s.apiSetConfiguration)
	api.Delete("/profile/configuration", s.requireToken, s.apiDeleteConfiguration)
}
