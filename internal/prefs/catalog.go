package prefs

// Built-in string tables. Lua packs may add locales or override these keys.
var builtinCatalogs = map[string]map[string]string{
	"en": {
		"locale.name": "English",

		"app.title":   "HostelHub",
		"app.loading": "Loading…",
		"app.offline": "Offline",
		"app.quit":    "q quit",

		"nav.dashboard":        "Dashboard",
		"nav.listings":         "Listings",
		"nav.bookings":         "Bookings",
		"nav.messages":         "Messages",
		"nav.manager":          "Manager",
		"nav.manager_bookings": "Hostel bookings",
		"nav.admin":            "Admin",
		"nav.admin_users":      "Users",
		"nav.settings":         "Settings",
		"nav.login":            "Sign in",
		"nav.register":         "Create account",
		"nav.logout":           "Sign out",
		"nav.not_found":        "Page not found",

		"login.title":    "Sign in",
		"login.email":    "Email",
		"login.password": "Password",
		"login.welcome":  "Welcome back",

		"register.title":            "Create account",
		"register.name":             "Full name",
		"register.password_confirm": "Confirm password",
		"register.role":             "I am a",
		"register.role_student":     "Student",
		"register.role_manager":     "Hostel manager",
		"register.done":             "Account created. You can sign in now.",

		"dashboard.student": "Find a room, track your bookings and talk to managers.",
		"dashboard.manager": "Manage your hostels and the bookings they receive.",
		"dashboard.admin":   "Oversee users, listings and platform activity.",
		"dashboard.unread":  "Unread messages",

		"listings.title": "Hostels",
		"listings.empty": "No hostels found.",
		"listings.rooms": "rooms",

		"bookings.title": "Bookings",
		"bookings.empty": "No bookings yet.",

		"users.title": "Users",
		"users.empty": "No users.",

		"messages.title":        "Messages",
		"messages.empty":        "No conversations yet.",
		"messages.thread_empty": "No messages in this conversation.",
		"messages.compose":      "Write a message",
		"messages.attachments":  "Attachments (comma-separated paths)",
		"messages.start":        "Message the manager",
		"messages.sent":         "Message sent",

		"settings.title":  "Settings",
		"settings.theme":  "Theme",
		"settings.locale": "Language",
		"settings.saved":  "Preferences saved",

		"help.back":    "esc back",
		"help.refresh": "r refresh",
		"help.compose": "c compose",
	},
	"fr": {
		"locale.name": "Français",

		"app.title":   "HostelHub",
		"app.loading": "Chargement…",
		"app.offline": "Hors ligne",
		"app.quit":    "q quitter",

		"nav.dashboard":        "Tableau de bord",
		"nav.listings":         "Annonces",
		"nav.bookings":         "Réservations",
		"nav.messages":         "Messages",
		"nav.manager":          "Gestion",
		"nav.manager_bookings": "Réservations reçues",
		"nav.admin":            "Administration",
		"nav.admin_users":      "Utilisateurs",
		"nav.settings":         "Paramètres",
		"nav.login":            "Connexion",
		"nav.register":         "Créer un compte",
		"nav.logout":           "Déconnexion",
		"nav.not_found":        "Page introuvable",

		"login.title":    "Connexion",
		"login.email":    "E-mail",
		"login.password": "Mot de passe",
		"login.welcome":  "Bon retour",

		"register.title":            "Créer un compte",
		"register.name":             "Nom complet",
		"register.password_confirm": "Confirmer le mot de passe",
		"register.role":             "Je suis",
		"register.role_student":     "Étudiant",
		"register.role_manager":     "Gérant de foyer",
		"register.done":             "Compte créé. Vous pouvez vous connecter.",

		"dashboard.student": "Trouvez une chambre, suivez vos réservations et échangez avec les gérants.",
		"dashboard.manager": "Gérez vos foyers et leurs réservations.",
		"dashboard.admin":   "Supervisez les utilisateurs, les annonces et l'activité.",
		"dashboard.unread":  "Messages non lus",

		"listings.title": "Foyers",
		"listings.empty": "Aucun foyer trouvé.",
		"listings.rooms": "chambres",

		"bookings.title": "Réservations",
		"bookings.empty": "Aucune réservation.",

		"users.title": "Utilisateurs",
		"users.empty": "Aucun utilisateur.",

		"messages.title":        "Messages",
		"messages.empty":        "Aucune conversation.",
		"messages.thread_empty": "Aucun message dans cette conversation.",
		"messages.compose":      "Écrire un message",
		"messages.attachments":  "Pièces jointes (chemins séparés par des virgules)",
		"messages.start":        "Contacter le gérant",
		"messages.sent":         "Message envoyé",

		"settings.title":  "Paramètres",
		"settings.theme":  "Thème",
		"settings.locale": "Langue",
		"settings.saved":  "Préférences enregistrées",

		"help.back":    "échap retour",
		"help.refresh": "r actualiser",
		"help.compose": "c écrire",
	},
}
