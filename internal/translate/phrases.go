package translate

// phrases holds the bundled phrase table, applied in order per language.
var phrases = map[string][][2]string{
	Hindi: {
		{"Hello", "नमस्ते"},
		{"How are you?", "आप कैसे हैं?"},
		{"Thank you", "धन्यवाद"},
		{"Goodbye", "अलविदा"},
		{"Welcome", "स्वागत है"},
		{"Yes", "हाँ"},
		{"No", "नहीं"},
		{"Please", "कृपया"},
		{"Sorry", "माफ़ कीजिए"},
		{"Help", "मदद"},
	},
	Marathi: {
		{"Hello", "नमस्कार"},
		{"How are you?", "तुम कसे आहात?"},
		{"Thank you", "धन्यवाद"},
		{"Goodbye", "पुन्हा भेटू"},
		{"Welcome", "स्वागत आहे"},
		{"Yes", "होय"},
		{"No", "नाही"},
		{"Please", "कृपया"},
		{"Sorry", "माफ करा"},
		{"Help", "मदत"},
	},
	French: {
		{"Hello", "Bonjour"},
		{"How are you?", "Comment allez-vous?"},
		{"Thank you", "Merci"},
		{"Goodbye", "Au revoir"},
		{"Welcome", "Bienvenue"},
		{"Yes", "Oui"},
		{"No", "Non"},
		{"Please", "S'il vous plaît"},
		{"Sorry", "Désolé"},
		{"Help", "Aide"},
	},
	Spanish: {
		{"Hello", "Hola"},
		{"How are you?", "¿Cómo estás?"},
		{"Thank you", "Gracias"},
		{"Goodbye", "Adiós"},
		{"Welcome", "Bienvenido"},
		{"Yes", "Sí"},
		{"No", "No"},
		{"Please", "Por favor"},
		{"Sorry", "Lo siento"},
		{"Help", "Ayuda"},
	},
	German: {
		{"Hello", "Hallo"},
		{"How are you?", "Wie geht es dir?"},
		{"Thank you", "Danke"},
		{"Goodbye", "Auf Wiedersehen"},
		{"Welcome", "Willkommen"},
		{"Yes", "Ja"},
		{"No", "Nein"},
		{"Please", "Bitte"},
		{"Sorry", "Entschuldigung"},
		{"Help", "Hilfe"},
	},
	Chinese: {
		{"Hello", "你好"},
		{"How are you?", "你好吗？"},
		{"Thank you", "谢谢"},
		{"Goodbye", "再见"},
		{"Welcome", "欢迎"},
		{"Yes", "是"},
		{"No", "不"},
		{"Please", "请"},
		{"Sorry", "对不起"},
		{"Help", "帮助"},
	},
	Japanese: {
		{"Hello", "こんにちは"},
		{"How are you?", "お元気ですか？"},
		{"Thank you", "ありがとう"},
		{"Goodbye", "さようなら"},
		{"Welcome", "ようこそ"},
		{"Yes", "はい"},
		{"No", "いいえ"},
		{"Please", "お願いします"},
		{"Sorry", "すみません"},
		{"Help", "助けて"},
	},
}
