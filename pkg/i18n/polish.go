package i18n

func polishSet() TranslationSet {
	return TranslationSet{
		ErrorPrefix:       "Błąd: ",
		ErrorAtLinePrefix: "Błąd w linii %d: ",

		ErrorOccurred:       "Wystąpił błąd",
		StackUnderflowError: "przepełnienie stosu",
		TypeMismatchError:   "błąd typu",
		BreakOutsideLoop:    "break poza pętlą",
		RecursionLimitError: "przekroczono limit rekurencji",

		Banner:         "hsab - powłoka postfiksowa oparta na stosie",
		PressEnterExit: "naciśnij enter, aby wyjść",

		StartingFuture:  "uruchamianie future",
		AwaitingFuture:  "oczekiwanie na future",
		FutureCancelled: "future anulowane",
		FutureTimedOut:  "upłynął limit czasu future",

		JobStarted:  "zadanie uruchomione",
		JobFinished: "zadanie zakończone",
		JobKilled:   "zadanie zabite",

		PluginLoaded:          "wtyczka załadowana",
		PluginLoadFailed:      "nie udało się załadować wtyczki",
		PluginHotReloaded:     "wtyczka przeładowana na gorąco",
		PluginCommandShadowed: "komenda wtyczki przesłonięta",

		Yes: "tak",
		No:  "nie",
	}
}
