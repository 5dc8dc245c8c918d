package resume

// builtin is the resume injected into every prompt when no file override is configured.
const builtin = `NAME: Juily Bagate
LOCATION: Navi Mumbai, India
CONTACT: +91 9082123060 | bagatejuily15@gmail.com
LINKS: GitHub | LinkedIn

EDUCATION:
- BTech in Computer Science Engineering, MIT ADT University, Pune, Maharashtra | Expected Graduation: 2026
- HSC, Rani Laxmibai Girls Military School, Pune, Maharashtra | 2022

TECHNICAL SKILLS:
• Programming Languages: Python, C++, SQL
• Web Development: HTML, CSS, JavaScript, React, REST APIs, Flask, Django
• AI/ML & Data Science: Deep Learning, TensorFlow, Scikit-learn, Pandas, NumPy, Matplotlib, Model Evaluation, Data Visualization (Tableau, Power BI)
• Cloud Services: AWS (EC2, S3, Lambda)
• Tools & Methodologies: GitHub, VS Code, Jupyter Notebook, OOP, Agile, Scrum

CERTIFICATIONS:
• Machine Learning - IBM
• AWS Academy Graduate - AWS Academy Cloud Foundations
• Crash Course on Python - Google

EXPERIENCE:
• AI-ML Virtual Internship | AICTE × EduSkills | Jul–Sep 2025
  - Completed 10-week virtual internship focusing on Artificial Intelligence and Machine Learning
  - Gained hands-on experience with ML algorithms, model development, and data analysis using real-world datasets
  - Enhanced understanding of AI tools and Google-supported technologies for problem solving

PROJECTS:
• Business Sentiment Analysis | GitHub
  - Developed a Flask-based web app to analyze real-time sentiment from news, Twitter, and Reddit using APIs
  - Implemented user authentication and personalized dashboards with dynamic sentiment updates via AJAX
  - Designed responsive UI and visualized trends using Chart.js and Tailwind CSS

• Agro-Vision | GitHub
  - Developed an AI-driven predictive system for crop health monitoring, price forecasting, and supply chain optimization
  - Implemented machine learning models using Python, TensorFlow, Pandas, and Scikit-learn for accurate prediction and analysis
  - Built an interactive Flask-based dashboard with SQL database integration for real-time data visualization and decision support

EXTRACURRICULAR:
• NCC Cadet (National Cadet Corps) - Participated in training camps and social service initiatives
• Department Women's Football & Kabaddi Team member with 2 Intercollegiate Golds and 1 Silver`
