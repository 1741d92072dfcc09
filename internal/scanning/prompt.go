package scanning

// billScanPrompt is the shared prompt used by all LLM providers. The reply
// template it asks for is the contract parse.go matches against.
const billScanPrompt = `You are reading a photo of a shopping bill. Extract the total amount, the purchase date and every purchased item.
Categorize each item into exactly one of these categories: grocery, utensil, clothing, miscellaneous.

Reply using exactly this template and nothing else:

Total Amount: €<total with two decimals>
Date: <YYYY-MM-DD>
Items:
- <item name>: €<price with two decimals> (Category: <category>)

Rules:
- Write one "- " line per item, in the order the items appear on the bill
- Use a dot as decimal separator and no thousands separators
- If the date cannot be read, write "Date: unknown"
- Do not use markdown, tables or code blocks`

// systemPrompt primes chat-style backends before the bill prompt
const systemPrompt = "You are an expert at reading receipts and bills. You carefully read all text in images and report it accurately."
