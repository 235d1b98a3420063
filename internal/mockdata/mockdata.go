// Package mockdata generates the demo dataset shown in offline mode. It is
// a pure data factory: callers own id prefixing and persistence.
package mockdata

import (
	"fmt"
	"math/rand"
	"time"

	"edwid/api/internal/blog"
)

type seed struct {
	title       string
	description string
	category    string
}

var seedsByLocale = map[string][]seed{
	"en": {
		{"Getting Started with Modern Web Development", "A practical walkthrough of the tools and habits that make web projects maintainable.", "Technology"},
		{"Minimalism: Owning Less, Living More", "Why cutting your possessions in half might double your focus.", "Lifestyle"},
		{"Learning in Public: A Study Framework", "Turning your notes into posts keeps you honest and helps others along the way.", "Education"},
		{"The Science of Better Sleep", "Small schedule changes with outsized effects on rest and recovery.", "Health"},
		{"Budgeting Without Spreadsheet Fatigue", "Three-category budgets that survive contact with real life.", "Finance"},
		{"Why Side Projects Beat Tutorials", "Shipping something small teaches more than finishing another course.", "Technology"},
	},
	"es": {
		{"Primeros pasos en el desarrollo web moderno", "Un recorrido práctico por las herramientas que mantienen tus proyectos sanos.", "Technology"},
		{"Minimalismo: tener menos, vivir más", "Por qué reducir tus posesiones puede duplicar tu concentración.", "Lifestyle"},
		{"Aprender en público: un método de estudio", "Convertir tus apuntes en publicaciones te mantiene honesto.", "Education"},
		{"La ciencia de dormir mejor", "Pequeños cambios de horario con grandes efectos en el descanso.", "Health"},
		{"Presupuestos sin fatiga de hojas de cálculo", "Presupuestos de tres categorías que sobreviven a la vida real.", "Finance"},
		{"Por qué los proyectos propios superan a los tutoriales", "Publicar algo pequeño enseña más que terminar otro curso.", "Technology"},
	},
	"fr": {
		{"Bien débuter le développement web moderne", "Un tour pratique des outils qui gardent vos projets maintenables.", "Technology"},
		{"Minimalisme : posséder moins, vivre plus", "Pourquoi réduire ses possessions peut doubler sa concentration.", "Lifestyle"},
		{"Apprendre en public : une méthode d'étude", "Transformer ses notes en articles vous garde honnête.", "Education"},
		{"La science d'un meilleur sommeil", "De petits changements d'horaire aux grands effets.", "Health"},
		{"Budgéter sans fatigue de tableur", "Des budgets à trois catégories qui résistent à la vraie vie.", "Finance"},
		{"Pourquoi les projets personnels battent les tutoriels", "Livrer quelque chose de petit apprend plus qu'un cours de plus.", "Technology"},
	},
	"de": {
		{"Einstieg in die moderne Webentwicklung", "Ein praktischer Überblick über Werkzeuge, die Projekte wartbar halten.", "Technology"},
		{"Minimalismus: Weniger besitzen, mehr leben", "Warum halb so viel Besitz doppelt so viel Fokus bringen kann.", "Lifestyle"},
		{"Öffentlich lernen: ein Lernrahmen", "Notizen als Beiträge zu veröffentlichen hält ehrlich.", "Education"},
		{"Die Wissenschaft des besseren Schlafs", "Kleine Planänderungen mit großer Wirkung auf die Erholung.", "Health"},
		{"Budgetieren ohne Tabellenmüdigkeit", "Drei-Kategorien-Budgets, die den Alltag überleben.", "Finance"},
		{"Warum eigene Projekte Tutorials schlagen", "Etwas Kleines zu veröffentlichen lehrt mehr als noch ein Kurs.", "Technology"},
	},
	"hi": {
		{"आधुनिक वेब विकास की शुरुआत", "उन उपकरणों की व्यावहारिक समीक्षा जो प्रोजेक्ट को टिकाऊ बनाते हैं।", "Technology"},
		{"न्यूनतावाद: कम रखें, अधिक जिएँ", "कम सामान रखने से ध्यान दोगुना कैसे हो सकता है।", "Lifestyle"},
		{"सार्वजनिक रूप से सीखना: एक अध्ययन ढांचा", "अपने नोट्स को पोस्ट में बदलना आपको ईमानदार रखता है।", "Education"},
		{"बेहतर नींद का विज्ञान", "छोटे बदलाव, आराम पर बड़ा असर।", "Health"},
		{"बिना थकान के बजट बनाना", "तीन-श्रेणी बजट जो असली जीवन में टिकते हैं।", "Finance"},
		{"साइड प्रोजेक्ट ट्यूटोरियल से बेहतर क्यों हैं", "कुछ छोटा प्रकाशित करना एक और कोर्स पूरा करने से अधिक सिखाता है।", "Technology"},
	},
}

var authors = []string{"Alex Rivera", "Sam Carter", "Priya Nair", "Jonas Weber", "María Ortiz", "Lena Fischer"}

// Generate produces the demo dataset for a locale, falling back to English
// for unknown locales. Ids are plain ordinals; the mode controller applies
// the demo prefix before the records surface anywhere.
func Generate(locale string) []blog.Post {
	seeds, ok := seedsByLocale[locale]
	if !ok {
		seeds = seedsByLocale["en"]
	}

	posts := make([]blog.Post, 0, len(seeds))
	for i, s := range seeds {
		daysAgo := (i + 1) * 3
		published := time.Now().AddDate(0, 0, -daysAgo)
		created := published
		status := blog.StatusPublish
		if i == len(seeds)-1 {
			status = blog.StatusDraft
		}
		posts = append(posts, blog.Post{
			ID:          fmt.Sprintf("%d", i+1),
			Title:       s.title,
			Description: s.description,
			Category:    s.category,
			Author:      authors[i%len(authors)],
			PublishDate: published.Format("2006-01-02"),
			Status:      status,
			Views:       100 + rand.Intn(1900),
			CreatedAt:   &created,
		})
	}
	return posts
}
