package advisor

// advisorPersona is the system message shared by both advice tiers.
const advisorPersona = `You are an advisor for charitable giving campaigns, basing every answer on real case studies from successful campaigns.`

// detailedPromptTemplate is the user message for detailed-mode advice.
// Placeholders: %s = query, %s = formatted case studies.
const detailedPromptTemplate = `User Query: %s

I'll provide you with relevant case studies from successful giving campaigns. Your task is to analyze these cases and provide specific, actionable advice that addresses the user's query. Focus on practical strategies and lessons from the case studies.

Here are the relevant case studies:

%s

Please provide comprehensive advice that directly answers the user's query. Include:
1. Direct answers to the specific question
2. Practical strategies based on the case studies
3. Concrete examples from the case studies
4. Implementation suggestions
5. Key considerations or potential challenges

Format your response in clear sections with markdown headings, bullet points for actionable items, and emphasis on key points. Be specific and practical rather than generic.`

// fastPromptTemplate is the user message for fast-mode advice.
// Placeholders: %s = query, %s = formatted case studies.
const fastPromptTemplate = `User Query: %s

I'll provide you with relevant case studies from successful giving campaigns. Your task is to provide concise, specific advice that addresses the user's query.

Here are the relevant case studies:

%s

Provide a concise, direct response focusing on:
1. Key strategies that answer the query
2. Brief examples from the case studies
3. Quick implementation tips

Keep your response practical, specific, and to the point. Use bullet points and clear language.`

// enhancementPromptTemplate expands a user query for better retrieval.
// Placeholder: %s = query.
const enhancementPromptTemplate = `You are a query enhancement system for a giving campaign advisor. Your goal is to expand a user's query to improve retrieval of relevant case studies.

Original Query: %s

Rewrite this query to include:
1. Relevant giving campaign terminology
2. Alternative phrases that express the same information need
3. Specific aspects or dimensions of the query topic
4. Related fundraising, volunteer, or community engagement concepts

Your enhanced query should be comprehensive but focused on the user's original intent. Do not introduce unrelated topics. Write the enhanced query as a paragraph that a vector search system can use to find relevant content.

Enhanced query:`

// noResultsAdvice is returned when the index holds nothing relevant.
const noResultsAdvice = `I couldn't find any relevant case studies to address your question. Please try rephrasing or ask a different question about giving campaigns.`
