package orchestrator

import "voicegate/internal/ai"

// Canned lines for moments the pipeline cannot reach the LLM. Spoken in the
// session's current speaking language, English as the fallback.

var repeatLines = map[string]string{
	ai.LangEnglish:  "Sorry, I didn't catch that. Could you please repeat?",
	ai.LangHindi:    "माफ़ कीजिए, मैं समझ नहीं पाई। कृपया दोबारा बोलिए।",
	ai.LangMarathi:  "माफ करा, मला नीट ऐकू आले नाही. कृपया पुन्हा सांगा.",
	ai.LangGujarati: "માફ કરશો, મને બરાબર સંભળાયું નહીં. કૃપા કરીને ફરી કહો.",
}

var stillThereLines = map[string]string{
	ai.LangEnglish:  "Are you still there?",
	ai.LangHindi:    "क्या आप अभी भी लाइन पर हैं?",
	ai.LangMarathi:  "तुम्ही अजून लाइनवर आहात का?",
	ai.LangGujarati: "શું તમે હજી લાઇન પર છો?",
}

var apologyLines = map[string]string{
	ai.LangEnglish:  "I'm sorry, I'm having trouble right now. Please call back in a little while.",
	ai.LangHindi:    "माफ़ कीजिए, अभी कुछ तकनीकी समस्या है। कृपया थोड़ी देर बाद फिर कॉल करें।",
	ai.LangMarathi:  "माफ करा, सध्या तांत्रिक अडचण आहे. कृपया थोड्या वेळाने पुन्हा कॉल करा.",
	ai.LangGujarati: "માફ કરશો, અત્યારે ટેકનિકલ સમસ્યા છે. કૃપા કરીને થોડી વાર પછી ફરી કૉલ કરો.",
}

var goodbyeLines = map[string]string{
	ai.LangEnglish:  "Thank you for calling. Goodbye!",
	ai.LangHindi:    "कॉल करने के लिए धन्यवाद। नमस्ते!",
	ai.LangMarathi:  "कॉल केल्याबद्दल धन्यवाद. नमस्कार!",
	ai.LangGujarati: "કૉલ કરવા બદલ આભાર. આવજો!",
}

func line(lines map[string]string, lang string) string {
	if s, ok := lines[lang]; ok {
		return s
	}
	return lines[ai.LangEnglish]
}
