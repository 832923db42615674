package profile

const promptSchema = `{
  "personalDetails": {
    "name": "string",
    "email": "string",
    "phone": "string",
    "address": "string",
    "linkedinUrl": "string",
    "githubUrl": "string",
    "portfolioUrl": "string",
    "summary": "string"
  },
  "workExperiences": [
    {
      "jobTitle": "string",
      "companyName": "string",
      "location": "string",
      "startDate": "YYYY-MM-DD",
      "endDate": "YYYY-MM-DD or Present",
      "currentJob": true,
      "description": "string"
    }
  ],
  "educations": [
    {
      "institutionName": "string",
      "degree": "string",
      "fieldOfStudy": "string",
      "startDate": "YYYY-MM-DD",
      "endDate": "YYYY-MM-DD",
      "grade": "string",
      "description": "string"
    }
  ],
  "skills": [
    {
      "skillName": "string",
      "proficiencyLevel": "string (e.g., Beginner, Intermediate, Advanced, Expert)",
      "category": "string (e.g., Languages, Frameworks, Tools)"
    }
  ],
  "projects": [
    {
      "name": "string",
      "techStack": "string",
      "date": "YYYY-MM-DD",
      "achievements": ["string"]
    }
  ],
  "certificates": [
    {
      "name": "string",
      "date": "YYYY-MM-DD",
      "institution": "string",
      "url": "string"
    }
  ]
}
`

// BuildPrompt embeds rawText after the fixed extraction instructions.
func BuildPrompt(rawText string) string {
	return "You are an expert resume parser. Analyze the following resume text and extract the information into a structured JSON object. " +
		"The JSON object must follow this exact schema: " + promptSchema +
		"Ensure all date fields are in YYYY-MM-DD format. If a month and year are given, use the first day of the month (e.g., 'June 2020' becomes '2020-06-01'). " +
		"If only a year is given, use January 1st of that year. If an end date is 'Present' or 'Current', use the literal string 'Present'. " +
		"If a piece of information is not available, set its value to null. Do not invent information. " +
		"The entire output must be a single, valid JSON object and nothing else. Do not include any introductory text, backticks, or explanations. " +
		"\n\nHere is the resume text:\n\n" + rawText
}
