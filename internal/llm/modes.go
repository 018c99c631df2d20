package llm

import (
	"strings"
)

// Mode 生成模式，决定模型与模式提示词。
type Mode struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Model  string `json:"model"`
	Prompt string `json:"-"`
}

const (
	ModeNormal = "normal"
	ModePro    = "pro"

	// EditModel 图片编辑固定使用快速模型
	EditModel = "gemini-2.5-flash-image"

	personMarker  = "[PERSON IMAGE FOLLOWS]"
	garmentMarker = "[GARMENT/CLOTHING IMAGE FOLLOWS - DRESS THE PERSON IN THIS]"
)

var modes = map[string]Mode{
	ModeNormal: {
		ID:     ModeNormal,
		Label:  "Normal Mode (Fast)",
		Model:  "gemini-2.5-flash-image",
		Prompt: "Generate a virtual try-on image. The first image is the CUSTOMER - keep their face, body, and pose exactly the same. The second image is the GARMENT they should wear. Create a new image showing THIS EXACT CUSTOMER wearing THIS EXACT GARMENT. The customer must be recognizable as the same person. The garment must look identical to the one provided (same colors, patterns, details). Fit the garment naturally on the customer's body. Use a clean studio background.",
	},
	ModePro: {
		ID:     ModePro,
		Label:  "Pro Mode (High Quality)",
		Model:  "gemini-3-pro-image-preview",
		Prompt: "You are a professional virtual try-on system. I am providing two images: IMAGE 1 is the CUSTOMER photo - this person must appear in the final output with their exact same face, skin tone, hair, and body proportions preserved perfectly. IMAGE 2 is the GARMENT - this exact garment with all its colors, textures, embroidery, and design details must appear on the customer. Generate a single photorealistic image showing the customer from IMAGE 1 wearing the garment from IMAGE 2. The garment should fit naturally on their body with proper draping, shadows, and alignment. Use a clean neutral studio background. The final image must look like a real photograph of this specific person wearing this specific garment.",
	},
}

// LookupMode 按 ID 查找模式，空值视为 normal。
func LookupMode(id string) (Mode, bool) {
	key := strings.ToLower(strings.TrimSpace(id))
	if key == "" {
		key = ModeNormal
	}
	mode, ok := modes[key]
	return mode, ok
}

// Modes 返回全部模式，normal 在前。
func Modes() []Mode {
	return []Mode{modes[ModeNormal], modes[ModePro]}
}

const tryOnPreamble = "You are a virtual try-on AI. Your task is to generate a NEW composite image."

const criticalInstructions = `CRITICAL INSTRUCTIONS:
1. IMAGE 1 (first image) = THE PERSON/CUSTOMER - This is who should appear in the output
2. IMAGE 2 (second image) = THE CLOTHING/GARMENT - This is what they should be wearing

YOUR OUTPUT MUST:
- Show the EXACT same person from Image 1 (same face, skin, hair, body)
- Dress them in the EXACT garment from Image 2 (same colors, patterns, fabric)
- Create a realistic composite where the person is wearing the garment
- Use a clean neutral background

DO NOT just return the original person image. You MUST show them wearing the new garment.`

// ComposeTryOnPrompt 组装完整指令：前导语、模式提示词、强制约束、系统/用户指令、人物图片标记。
// 强制约束始终位于调用方指令之前，调用方指令只能追加不能替换。
func ComposeTryOnPrompt(mode Mode, instructions ...string) string {
	sections := []string{tryOnPreamble, mode.Prompt, criticalInstructions}
	for _, instruction := range instructions {
		if trimmed := strings.TrimSpace(instruction); trimmed != "" {
			sections = append(sections, trimmed)
		}
	}
	sections = append(sections, personMarker)
	return strings.Join(sections, "\n\n")
}

// DefaultSystemPrompt 系统提示词默认值，管理员可在设置中修改。
const DefaultSystemPrompt = `You are an AI professional virtual try-on engine used in a boutique tailoring system. 
Your job is to generate a hyper-realistic try-on image combining a customer photo and a garment photo.

STRICT RULES FOR OUTPUT (DO NOT VIOLATE):

1. CUSTOMER MUST REMAIN 100% IDENTICAL:
   - Same face structure, eyes, nose, lips, skin tone, hair, and posture.
   - Do NOT modify the customer's identity.
   - Do NOT beautify, stylize, or change the customer.
   - Maintain exact pose, angle, proportions, and body shape.

2. GARMENT MUST REMAIN 100% TRUE TO ORIGINAL:
   - Preserve exact colors, textures, embroidery, stitching patterns, borders, shine, and fabric details.
   - Do NOT simplify or invent new patterns.
   - Do NOT change the garment shape or design.
   - The garment must fit naturally onto the customer's body and align to their posture.

3. FITTING & REALISM REQUIREMENTS:
   - Align garment edges accurately around shoulders, arms, waist, and body contours.
   - Remove the original clothing underneath cleanly.
   - Maintain correct perspective, light, and shadow.
   - Avoid warping, stretching, or distorting the garment.
   - Ensure clean blending at neck, sleeves, and borders.

4. BACKGROUND RULE:
   - Generate a clean, neutral studio-style background.
   - No distractions, props, artifacts, or unnecessary objects.

5. OUTPUT STYLE:
   - Photo-realistic.
   - High-resolution.
   - Natural colors.
   - No filters, no stylization.

6. FINAL OUTPUT REQUIREMENT:
   Produce a seamless, realistic, studio-quality try-on image where:
   - The customer looks exactly like themselves.
   - The garment looks exactly like the provided garment.
   - Both appear naturally merged as if photographed together.

Always ensure accuracy, realism, and garment integrity.
Return ONLY the perfected try-on image as the output.`
