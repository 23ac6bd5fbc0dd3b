// Package i18n translates the user-facing strings of the indicator.
package i18n

import (
	"log"
	"os"
	"strings"
	"sync"

	"github.com/jeandeaual/go-locale"
)

// LanguageEnv overrides the detected system language.
const LanguageEnv = "POMODORO_LANG"

var (
	mu   sync.RWMutex
	lang = "en"
)

var translations = map[string]map[string]string{
	"Pomodoro": {
		"de": "Pomodoro",
		"es": "Pomodoro",
		"pl": "Pomodoro",
		"pt": "Pomodoro",
	},
	"Focus on your task.": {
		"de": "Konzentriere dich auf deine Aufgabe.",
		"es": "Concéntrate en tu tarea.",
		"pl": "Skup się na zadaniu.",
		"pt": "Concentre-se na sua tarefa.",
	},
	"Take a break": {
		"de": "Mach eine Pause",
		"es": "Toma un descanso",
		"pl": "Zrób sobie przerwę",
		"pt": "Faça uma pausa",
	},
	"You worked hard. Stand up and stretch.": {
		"de": "Du hast hart gearbeitet. Steh auf und streck dich.",
		"es": "Has trabajado duro. Levántate y estírate.",
		"pl": "Ciężko pracowałeś. Wstań i się rozciągnij.",
		"pt": "Você trabalhou muito. Levante-se e alongue-se.",
	},
	"Show break screen": {
		"de": "Pausenbildschirm zeigen",
		"es": "Mostrar pantalla de descanso",
		"pl": "Pokaż ekran przerwy",
		"pt": "Mostrar tela de pausa",
	},
	"Pomodoro problem": {
		"de": "Pomodoro-Problem",
		"es": "Problema de Pomodoro",
		"pl": "Problem z Pomodoro",
		"pt": "Problema no Pomodoro",
	},
	"Close": {
		"de": "Schließen",
		"es": "Cerrar",
		"pl": "Zamknij",
		"pt": "Fechar",
	},
	"Stopped": {
		"de": "Gestoppt",
		"es": "Detenido",
		"pl": "Zatrzymany",
		"pt": "Parado",
	},
	"Idle": {
		"de": "Untätig",
		"es": "Inactivo",
		"pl": "Bezczynny",
		"pt": "Ocioso",
	},
	"Break": {
		"de": "Pause",
		"es": "Descanso",
		"pl": "Przerwa",
		"pt": "Pausa",
	},
	"Start": {
		"de": "Starten",
		"es": "Iniciar",
		"pl": "Start",
		"pt": "Iniciar",
	},
	"Stop": {
		"de": "Stoppen",
		"es": "Parar",
		"pl": "Stop",
		"pt": "Parar",
	},
	"Preferences": {
		"de": "Einstellungen",
		"es": "Preferencias",
		"pl": "Preferencje",
		"pt": "Preferências",
	},
	"Quit": {
		"de": "Beenden",
		"es": "Salir",
		"pl": "Zakończ",
		"pt": "Sair",
	},
	"Pomodoro Preferences": {
		"de": "Pomodoro-Einstellungen",
		"es": "Preferencias de Pomodoro",
		"pl": "Preferencje Pomodoro",
		"pt": "Preferências do Pomodoro",
	},
	"Fullscreen break screen": {
		"de": "Pausenbildschirm im Vollbild",
		"es": "Pantalla de descanso a pantalla completa",
		"pl": "Ekran przerwy na pełnym ekranie",
		"pt": "Tela de pausa em tela cheia",
	},
	"Start on login": {
		"de": "Beim Anmelden starten",
		"es": "Iniciar al iniciar sesión",
		"pl": "Uruchamiaj po zalogowaniu",
		"pt": "Iniciar ao entrar",
	},
	"Timer": {
		"de": "Timer",
		"es": "Temporizador",
		"pl": "Minutnik",
		"pt": "Temporizador",
	},
	"Backend": {
		"de": "Backend",
		"es": "Motor",
		"pl": "Silnik",
		"pt": "Motor",
	},
	"min": {
		"de": "Min.",
		"es": "min",
		"pl": "min",
		"pt": "min",
	},
	"Short break": {
		"de": "Kurze Pause",
		"es": "Descanso corto",
		"pl": "Krótka przerwa",
		"pt": "Pausa curta",
	},
	"Long break": {
		"de": "Lange Pause",
		"es": "Descanso largo",
		"pl": "Długa przerwa",
		"pt": "Pausa longa",
	},
	"Long break every": {
		"de": "Lange Pause alle",
		"es": "Descanso largo cada",
		"pl": "Długa przerwa co",
		"pt": "Pausa longa a cada",
	},
	"pomodoros": {
		"de": "Pomodoros",
		"es": "pomodoros",
		"pl": "pomodoro",
		"pt": "pomodoros",
	},
	"Notifications": {
		"de": "Benachrichtigungen",
		"es": "Notificaciones",
		"pl": "Powiadomienia",
		"pt": "Notificações",
	},
	"Reopen break screen after": {
		"de": "Pausenbildschirm wieder öffnen nach",
		"es": "Reabrir la pantalla de descanso tras",
		"pl": "Otwórz ponownie ekran przerwy po",
		"pt": "Reabrir tela de pausa após",
	},
	"sec idle": {
		"de": "Sek. Inaktivität",
		"es": "s de inactividad",
		"pl": "s bezczynności",
		"pt": "s ocioso",
	},
	"General": {
		"de": "Allgemein",
		"es": "General",
		"pl": "Ogólne",
		"pt": "Geral",
	},
	"Toggle timer shortcut": {
		"de": "Tastenkürzel zum Umschalten",
		"es": "Atajo para alternar el temporizador",
		"pl": "Skrót przełączania minutnika",
		"pt": "Atalho para alternar o temporizador",
	},
	"Save": {
		"de": "Speichern",
		"es": "Guardar",
		"pl": "Zapisz",
		"pt": "Salvar",
	},
	"Cancel": {
		"de": "Abbrechen",
		"es": "Cancelar",
		"pl": "Anuluj",
		"pt": "Cancelar",
	},
}

// Bind selects the language used by T. The LanguageEnv variable wins over the
// system locale; anything unrecognised falls back to English.
func Bind() string {
	selected := detect()
	mu.Lock()
	lang = selected
	mu.Unlock()
	log.Printf("i18n: language set to %s", selected)
	return selected
}

func detect() string {
	if forced := strings.TrimSpace(os.Getenv(LanguageEnv)); forced != "" {
		return normalize(forced)
	}
	userLocales, err := locale.GetLocales()
	if err != nil {
		log.Printf("i18n: detect locale: %v", err)
		return "en"
	}
	if len(userLocales) == 0 {
		return "en"
	}
	return normalize(userLocales[0])
}

func normalize(value string) string {
	value = strings.ToLower(value)
	for _, known := range []string{"de", "es", "pl", "pt"} {
		if strings.HasPrefix(value, known) {
			return known
		}
	}
	return "en"
}

// T returns the translation of key, or key itself.
func T(key string) string {
	mu.RLock()
	current := lang
	mu.RUnlock()
	if translated, ok := translations[key][current]; ok {
		return translated
	}
	return key
}

// Lang returns the active language.
func Lang() string {
	mu.RLock()
	defer mu.RUnlock()
	return lang
}
